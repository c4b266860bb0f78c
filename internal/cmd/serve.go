package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/logistix/internal/api"
	"github.com/runger/logistix/internal/seed"
	"github.com/runger/logistix/internal/storage"
)

var (
	serveAddr    string
	serveDB      string
	serveSeed    int
	serveLatency time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mock master-data API",
	Long: `Run a local master-data API backed by SQLite.

On first start every collection is seeded with deterministic sample data.
--latency delays each list response, which makes out-of-order search
results easy to reproduce in the picker.

Prometheus metrics are served at /metrics.

Examples:
  logistix serve
  logistix serve --addr :9000 --latency 300ms
  logistix serve --db /tmp/masterdata.db --seed 1000`,
	GroupID: groupCore,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default serve.db_path)")
	serveCmd.Flags().IntVar(&serveSeed, "seed", -1, "records generated per collection on first start (default serve.seed_count)")
	serveCmd.Flags().DurationVar(&serveLatency, "latency", -1, "artificial latency per list response (default serve.latency_ms)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	addr := cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	dbPath := cfg.Serve.DBPath
	if serveDB != "" {
		dbPath = serveDB
	}
	if dbPath == "" {
		if err := paths.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
		dbPath = paths.DatabaseFile()
	}
	count := cfg.Serve.SeedCount
	if serveSeed >= 0 {
		count = serveSeed
	}
	latency := time.Duration(cfg.Serve.LatencyMs) * time.Millisecond
	if serveLatency >= 0 {
		latency = serveLatency
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed.Seed(ctx, store, count); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	logger.Info("database ready", "path", dbPath, "seed_count", count)

	srv := api.NewServer(store,
		api.WithLogger(logger),
		api.WithLatency(latency),
	)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
