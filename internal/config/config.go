package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"indicadores/internal/catalog"
)

// Config holds all indicadores configuration.
type Config struct {
	// Backend that evaluates indicators
	Backend BackendConfig `yaml:"backend"`

	// Interactive form
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prometheus exposition
	Metrics MetricsConfig `yaml:"metrics"`

	// Batch and watch modes
	Batch BatchConfig `yaml:"batch"`
	Watch WatchConfig `yaml:"watch"`
}

// BackendConfig locates the indicator backend. The endpoint path is fixed;
// only scheme, host and an optional prefix are configurable.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// UIConfig configures the terminal form.
type UIConfig struct {
	Theme             string   `yaml:"theme"` // auto, light, dark
	HistorySize       int      `yaml:"history_size"`
	DefaultIndicators []string `yaml:"default_indicators"`
}

// MetricsConfig configures the /metrics listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// BatchConfig configures batch submissions.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// ValidThemes lists accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000",
			Timeout: "30s",
		},
		UI: UIConfig{
			Theme:       "auto",
			HistorySize: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Dir returns the configuration directory: ./.indicadores when it exists,
// otherwise ~/.indicadores.
func Dir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ".indicadores")
		if stat, err := os.Stat(local); err == nil && stat.IsDir() {
			return local, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".indicadores"), nil
}

// DefaultPath returns the config file path inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Variables from a .env file in the working directory are loaded
// first, then environment overrides are applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("INDICADORES_BACKEND_URL")); v != "" {
		c.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("INDICADORES_TIMEOUT")); v != "" {
		c.Backend.Timeout = v
	}
	if v := strings.TrimSpace(os.Getenv("INDICADORES_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("INDICADORES_METRICS_ADDR")); v != "" {
		c.Metrics.Addr = v
	}
	if os.Getenv("INDICADORES_DARK_MODE") == "1" {
		c.UI.Theme = "dark"
	}
}

// GetTimeout returns the backend timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetDebounce returns the watch debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend.base_url: %q (want http(s)://host[:port])", c.Backend.BaseURL)
	}
	if d, err := time.ParseDuration(c.Backend.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid backend.timeout: %q", c.Backend.Timeout)
	}

	if !contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	if c.UI.HistorySize < 1 {
		return fmt.Errorf("invalid ui.history_size: %d (must be >= 1)", c.UI.HistorySize)
	}
	if err := catalog.Validate(c.UI.DefaultIndicators); err != nil {
		return fmt.Errorf("invalid ui.default_indicators: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return err
	}

	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("invalid batch.concurrency: %d (must be >= 1)", c.Batch.Concurrency)
	}
	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		return fmt.Errorf("invalid watch.debounce: %q", c.Watch.Debounce)
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
