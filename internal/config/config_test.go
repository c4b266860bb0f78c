package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "http://localhost:8420/api/v1" {
		t.Errorf("Expected default base_url, got %s", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutMs != 5000 {
		t.Errorf("Expected timeout_ms=5000, got %d", cfg.API.TimeoutMs)
	}
	if cfg.Picker.PageSize != 30 {
		t.Errorf("Expected page_size=30, got %d", cfg.Picker.PageSize)
	}
	if cfg.Picker.DebounceMs != 400 {
		t.Errorf("Expected debounce_ms=400, got %d", cfg.Picker.DebounceMs)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log level=info, got %s", cfg.Log.Level)
	}
	if len(cfg.Resources) != 4 {
		t.Errorf("Expected 4 default resources, got %d", len(cfg.Resources))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

// ============================================================================
// Unified Get/Set tests
// ============================================================================

func TestConfigGet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key      string
		expected string
	}{
		{"api.base_url", "http://localhost:8420/api/v1"},
		{"api.token", ""},
		{"api.timeout_ms", "5000"},
		{"picker.page_size", "30"},
		{"picker.debounce_ms", "400"},
		{"picker.height", "0"},
		{"log.level", "info"},
		{"log.file", ""},
		{"serve.addr", "localhost:8420"},
		{"serve.db_path", ""},
		{"serve.seed_count", "250"},
		{"serve.latency_ms", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Errorf("Get(%q) error: %v", tt.key, err)
				return
			}
			if got != tt.expected {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestConfigGet_AllListedKeys(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range ListKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("ListKeys exposes %q but Get fails: %v", key, err)
		}
	}
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"api.base_url", "https://tms.example.com/api", "https://tms.example.com/api"},
		{"api.token", "abc123", "abc123"},
		{"api.timeout_ms", "250", "250"},
		{"picker.page_size", "50", "50"},
		{"picker.page_size", "1", "5"},
		{"picker.page_size", "9999", "200"},
		{"picker.debounce_ms", "300", "300"},
		{"picker.debounce_ms", "0", "0"},
		{"picker.height", "12", "12"},
		{"log.level", "debug", "debug"},
		{"log.level", "warn", "warn"},
		{"log.file", "/tmp/logistix.log", "/tmp/logistix.log"},
		{"serve.addr", ":9000", ":9000"},
		{"serve.db_path", "/tmp/md.db", "/tmp/md.db"},
		{"serve.seed_count", "10", "10"},
		{"serve.latency_ms", "800", "800"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Errorf("Set(%q, %q) error: %v", tt.key, tt.value, err)
				return
			}

			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Errorf("Get(%q) error: %v", tt.key, err)
				return
			}
			if got != tt.expected {
				t.Errorf("After Set, Get(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestConfigSet_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"api.timeout_ms", "soon"},
		{"api.timeout_ms", "-1"},
		{"picker.page_size", "many"},
		{"picker.debounce_ms", "-5"},
		{"log.level", "verbose"},
		{"serve.seed_count", "-1"},
		{"unknown.key", "x"},
		{"api.unknown", "x"},
		{"picker.unknown", "x"},
		{"log.unknown", "x"},
		{"serve.unknown", "x"},
		{"nodot", "x"},
		{"a.b.c", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
			}
		})
	}
}

func TestConfigGet_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range []string{"nodot", "unknown.key", "api.nope", "picker.nope", "log.nope", "serve.nope"} {
		if _, err := cfg.Get(key); err == nil {
			t.Errorf("Get(%q) should fail", key)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url must be set"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "http:// or https://"},
		{"negative timeout", func(c *Config) { c.API.TimeoutMs = -1 }, "api.timeout_ms"},
		{"negative debounce", func(c *Config) { c.Picker.DebounceMs = -1 }, "picker.debounce_ms"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"duplicate resource", func(c *Config) {
			c.Resources = append(c.Resources, c.Resources[0])
		}, "duplicate resource id"},
		{"bad kind", func(c *Config) { c.Resources[0].Kind = "order" }, "unknown record kind"},
		{"missing id", func(c *Config) { c.Resources[0].ID = "" }, "id must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FillsResourceDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources = []ResourceDef{{ID: "depots", Kind: "location"}}
	cfg.Picker.PageSize = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Resources[0].Path != "depots" {
		t.Errorf("Path should default to id, got %q", cfg.Resources[0].Path)
	}
	if cfg.Resources[0].Label != "depots" {
		t.Errorf("Label should default to id, got %q", cfg.Resources[0].Label)
	}
	if cfg.Picker.PageSize != 5 {
		t.Errorf("PageSize should be clamped to 5, got %d", cfg.Picker.PageSize)
	}

	cfg.Resources = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cfg.Resources) != len(DefaultResources()) {
		t.Errorf("empty resources should fall back to defaults")
	}
}

func TestResource(t *testing.T) {
	cfg := DefaultConfig()

	r, err := cfg.Resource("vendors")
	if err != nil {
		t.Fatalf("Resource(vendors): %v", err)
	}
	if r.Kind != "vendor" {
		t.Errorf("Kind = %q, want vendor", r.Kind)
	}

	_, err = cfg.Resource("orders")
	if err == nil || !strings.Contains(err.Error(), "customers, vendors, locations, pricelists") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	t.Setenv("LOGISTIX_API_URL", "")
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Picker.PageSize != 30 {
		t.Errorf("expected defaults, got page_size=%d", cfg.Picker.PageSize)
	}
}

func TestLoadFromFile_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `api:
  base_url: https://tms.example.com/api/v2
picker:
  page_size: 40
resources:
  - id: carriers
    kind: vendor
    path: carriers
    search_param: q
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.API.BaseURL != "https://tms.example.com/api/v2" {
		t.Errorf("base_url = %s", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutMs != 5000 {
		t.Errorf("unset fields keep defaults, got timeout_ms=%d", cfg.API.TimeoutMs)
	}
	if cfg.Picker.PageSize != 40 {
		t.Errorf("page_size = %d", cfg.Picker.PageSize)
	}
	r, err := cfg.Resource("carriers")
	if err != nil {
		t.Fatalf("Resource(carriers): %v", err)
	}
	if r.SearchParam != "q" || r.Label != "carriers" {
		t.Errorf("unexpected resource: %+v", r)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("api: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("log:\n  level: chatty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(invalid); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.Token = "tok"
	cfg.Picker.DebounceMs = 250
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("config file should not be group/world readable, got %v", perm)
	}

	t.Setenv("LOGISTIX_API_TOKEN", "")
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.API.Token != "tok" || loaded.Picker.DebounceMs != 250 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LOGISTIX_API_URL", "http://10.0.0.5:9000/api")
	t.Setenv("LOGISTIX_API_TOKEN", "envtok")
	t.Setenv("LOGISTIX_DEBUG", "1")
	t.Setenv("LOGISTIX_LOG_LEVEL", "")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://10.0.0.5:9000/api" {
		t.Errorf("base_url = %s", cfg.API.BaseURL)
	}
	if cfg.API.Token != "envtok" {
		t.Errorf("token = %s", cfg.API.Token)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("LOGISTIX_DEBUG should force debug, got %s", cfg.Log.Level)
	}
}

func TestApplyEnvOverrides_LogLevel(t *testing.T) {
	t.Setenv("LOGISTIX_DEBUG", "")
	t.Setenv("LOGISTIX_LOG_LEVEL", "warn")
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %s", cfg.Log.Level)
	}

	t.Setenv("LOGISTIX_LOG_LEVEL", "shouting")
	cfg = DefaultConfig()
	cfg.ApplyEnvOverrides()
	if cfg.Log.Level != "info" {
		t.Errorf("invalid env level should be ignored, got %s", cfg.Log.Level)
	}
}
