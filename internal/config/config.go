package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runger/logistix/internal/domain"
)

// Config represents the logistix configuration.
type Config struct {
	API       APIConfig     `yaml:"api"`
	Picker    PickerConfig  `yaml:"picker"`
	Log       LogConfig     `yaml:"log"`
	Serve     ServeConfig   `yaml:"serve"`
	Resources []ResourceDef `yaml:"resources"`
}

// APIConfig holds master-data API settings.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`   // e.g. http://localhost:8420/api/v1
	Token     string `yaml:"token"`      // Bearer token (optional)
	TimeoutMs int    `yaml:"timeout_ms"` // Per-request timeout
}

// PickerConfig holds remote select settings.
type PickerConfig struct {
	PageSize   int `yaml:"page_size"`   // Items requested per page
	DebounceMs int `yaml:"debounce_ms"` // Delay after the last keystroke before searching
	Height     int `yaml:"height"`      // Visible rows in the dropdown (0 = fit terminal)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (overrides default)
}

// ServeConfig holds settings for the bundled mock API server.
type ServeConfig struct {
	Addr      string `yaml:"addr"`       // Listen address
	DBPath    string `yaml:"db_path"`    // SQLite file (overrides default)
	SeedCount int    `yaml:"seed_count"` // Records generated per collection on first start
	LatencyMs int    `yaml:"latency_ms"` // Artificial latency added to list responses
}

// ResourceDef describes a pickable collection.
type ResourceDef struct {
	ID          string `yaml:"id"`           // Name used on the command line
	Label       string `yaml:"label"`        // Display name
	Kind        string `yaml:"kind"`         // customer, vendor, location, pricelist
	Path        string `yaml:"path"`         // Path relative to api.base_url
	SearchParam string `yaml:"search_param"` // Query parameter carrying the search term
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8420/api/v1",
			TimeoutMs: 5000,
		},
		Picker: PickerConfig{
			PageSize:   30,
			DebounceMs: 400,
			Height:     0,
		},
		Log: LogConfig{
			Level: "info",
			File:  "", // Use default from paths
		},
		Serve: ServeConfig{
			Addr:      "localhost:8420",
			DBPath:    "", // Use default from paths
			SeedCount: 250,
			LatencyMs: 0,
		},
		Resources: DefaultResources(),
	}
}

// DefaultResources returns the built-in collections.
func DefaultResources() []ResourceDef {
	return []ResourceDef{
		{ID: "customers", Label: "Customers", Kind: string(domain.KindCustomer), Path: "customers", SearchParam: "search"},
		{ID: "vendors", Label: "Vendors", Kind: string(domain.KindVendor), Path: "vendors", SearchParam: "search"},
		{ID: "locations", Label: "Locations", Kind: string(domain.KindLocation), Path: "locations", SearchParam: "search"},
		{ID: "pricelists", Label: "Price lists", Kind: string(domain.KindPriceList), Path: "pricelists", SearchParam: "search"},
	}
}

// Resource returns the resource definition with the given ID.
func (c *Config) Resource(id string) (ResourceDef, error) {
	for _, r := range c.Resources {
		if r.ID == id {
			return r, nil
		}
	}
	ids := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		ids[i] = r.ID
	}
	return ResourceDef{}, fmt.Errorf("unknown resource %q (available: %s)", id, strings.Join(ids, ", "))
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry an API token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "api.base_url" or "picker.page_size"
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "api":
		return c.getAPIField(field)
	case "picker":
		return c.getPickerField(field)
	case "log":
		return c.getLogField(field)
	case "serve":
		return c.getServeField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "api":
		return c.setAPIField(field, value)
	case "picker":
		return c.setPickerField(field, value)
	case "log":
		return c.setLogField(field, value)
	case "serve":
		return c.setServeField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getAPIField(field string) (string, error) {
	switch field {
	case "base_url":
		return c.API.BaseURL, nil
	case "token":
		return c.API.Token, nil
	case "timeout_ms":
		return strconv.Itoa(c.API.TimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: api.%s", field)
	}
}

func (c *Config) setAPIField(field, value string) error {
	switch field {
	case "base_url":
		c.API.BaseURL = value
	case "token":
		c.API.Token = value
	case "timeout_ms":
		v, err := parseNonNegative("timeout_ms", value)
		if err != nil {
			return err
		}
		c.API.TimeoutMs = v
	default:
		return fmt.Errorf("unknown field: api.%s", field)
	}
	return nil
}

func (c *Config) getPickerField(field string) (string, error) {
	switch field {
	case "page_size":
		return strconv.Itoa(c.Picker.PageSize), nil
	case "debounce_ms":
		return strconv.Itoa(c.Picker.DebounceMs), nil
	case "height":
		return strconv.Itoa(c.Picker.Height), nil
	default:
		return "", fmt.Errorf("unknown field: picker.%s", field)
	}
}

func (c *Config) setPickerField(field, value string) error {
	switch field {
	case "page_size":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for page_size: %w", err)
		}
		c.Picker.PageSize = clampPageSize(v)
	case "debounce_ms":
		v, err := parseNonNegative("debounce_ms", value)
		if err != nil {
			return err
		}
		c.Picker.DebounceMs = v
	case "height":
		v, err := parseNonNegative("height", value)
		if err != nil {
			return err
		}
		c.Picker.Height = v
	default:
		return fmt.Errorf("unknown field: picker.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	case "file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

func (c *Config) getServeField(field string) (string, error) {
	switch field {
	case "addr":
		return c.Serve.Addr, nil
	case "db_path":
		return c.Serve.DBPath, nil
	case "seed_count":
		return strconv.Itoa(c.Serve.SeedCount), nil
	case "latency_ms":
		return strconv.Itoa(c.Serve.LatencyMs), nil
	default:
		return "", fmt.Errorf("unknown field: serve.%s", field)
	}
}

func (c *Config) setServeField(field, value string) error {
	switch field {
	case "addr":
		c.Serve.Addr = value
	case "db_path":
		c.Serve.DBPath = value
	case "seed_count":
		v, err := parseNonNegative("seed_count", value)
		if err != nil {
			return err
		}
		c.Serve.SeedCount = v
	case "latency_ms":
		v, err := parseNonNegative("latency_ms", value)
		if err != nil {
			return err
		}
		c.Serve.LatencyMs = v
	default:
		return fmt.Errorf("unknown field: serve.%s", field)
	}
	return nil
}

func parseNonNegative(name, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must be >= 0", name)
	}
	return v, nil
}

// Page size is clamped to [5, 200].
func clampPageSize(v int) int {
	if v < 5 {
		return 5
	}
	if v > 200 {
		return 200
	}
	return v
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https:// (got: %s)", c.API.BaseURL)
	}
	if c.API.TimeoutMs < 0 {
		return errors.New("api.timeout_ms must be >= 0")
	}

	c.Picker.PageSize = clampPageSize(c.Picker.PageSize)
	if c.Picker.DebounceMs < 0 {
		return errors.New("picker.debounce_ms must be >= 0")
	}
	if c.Picker.Height < 0 {
		return errors.New("picker.height must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if c.Serve.SeedCount < 0 {
		return errors.New("serve.seed_count must be >= 0")
	}
	if c.Serve.LatencyMs < 0 {
		return errors.New("serve.latency_ms must be >= 0")
	}

	if len(c.Resources) == 0 {
		c.Resources = DefaultResources()
	}
	seen := make(map[string]bool, len(c.Resources))
	for i, r := range c.Resources {
		if r.ID == "" {
			return fmt.Errorf("resources[%d].id must be set", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate resource id: %s", r.ID)
		}
		seen[r.ID] = true
		if _, err := domain.ParseKind(r.Kind); err != nil {
			return fmt.Errorf("resources[%d].kind: %w", i, err)
		}
		if r.Path == "" {
			c.Resources[i].Path = r.ID
		}
		if r.Label == "" {
			c.Resources[i].Label = r.ID
		}
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LOGISTIX_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("LOGISTIX_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("LOGISTIX_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("LOGISTIX_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"api.base_url",
		"api.token",
		"api.timeout_ms",
		"picker.page_size",
		"picker.debounce_ms",
		"picker.height",
		"log.level",
		"log.file",
		"serve.addr",
		"serve.db_path",
		"serve.seed_count",
		"serve.latency_ms",
	}
}
