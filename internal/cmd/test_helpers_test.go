package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/runger/logistix/internal/api"
	"github.com/runger/logistix/internal/seed"
	"github.com/runger/logistix/internal/storage"
)

// resetGlobals restores every flag variable to its default after the test.
func resetGlobals(t *testing.T) {
	t.Helper()
	reset := func() {
		configPath = ""
		colorMode = "auto"
		pickValue, pickPlaceholder, pickQuery, pickBackend = "", "", "", "builtin"
		pickPageSize = 0
		listSearch, listLimit, listPage, listAll, listJSON = "", 0, 1, false, false
		serveAddr, serveDB, serveSeed, serveLatency = "", "", -1, -1
		logsFollow, logsLines = false, 50
	}
	reset()
	t.Cleanup(reset)
}

// isolateEnv points config, data and API settings at test-owned values.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("LOGISTIX_API_URL", "")
	t.Setenv("LOGISTIX_API_TOKEN", "")
	t.Setenv("LOGISTIX_LOG_LEVEL", "")
	t.Setenv("LOGISTIX_DEBUG", "")
	t.Setenv(pickOptsEnv, "")
	return dir
}

// executeCommand runs the root command with args and returns what it wrote
// to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetGlobals(t)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// startAPI serves a seeded in-memory store and points LOGISTIX_API_URL at it.
func startAPI(t *testing.T, count int) *httptest.Server {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := seed.Seed(context.Background(), store, count); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	srv := httptest.NewServer(api.NewServer(store, api.WithLogger(quietLogger())).Handler())
	t.Cleanup(srv.Close)
	t.Setenv("LOGISTIX_API_URL", srv.URL+api.BasePath)
	return srv
}
