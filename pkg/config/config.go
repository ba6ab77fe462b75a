// Package config loads lexcanon settings from YAML.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/lexcanon/pkg/types"
)

// Corpus drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CorpusConfig locates the corpus.
type CorpusConfig struct {
	// Driver is "file", "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// Path is the corpus directory for the file driver.
	Path string `yaml:"path,omitempty"`

	// DSN is the data source name for the SQL drivers.
	DSN string `yaml:"dsn,omitempty"`
}

// HarnessConfig tunes verification runs.
type HarnessConfig struct {
	Concurrency    int  `yaml:"concurrency"`
	FailOnWarn     bool `yaml:"fail_on_warn"`
	StaleAfterDays int  `yaml:"stale_after_days"`

	// WatchDebounce coalesces bursts of file changes in watch mode.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console or json
}

// ServerConfig configures the authoring API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Config is the full lexcanon configuration.
type Config struct {
	Corpus  CorpusConfig  `yaml:"corpus"`
	Harness HarnessConfig `yaml:"harness"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`

	// Jurisdictions extends the default jurisdiction registry.
	Jurisdictions []types.Jurisdiction `yaml:"jurisdictions,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Driver: DriverFile,
			Path:   "corpus",
		},
		Harness: HarnessConfig{
			Concurrency:    runtime.GOMAXPROCS(0),
			StaleAfterDays: 365,
			WatchDebounce:  250 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Corpus.Driver {
	case DriverFile:
		if c.Corpus.Path == "" {
			return fmt.Errorf("corpus: path is required for the file driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.Corpus.DSN == "" {
			return fmt.Errorf("corpus: dsn is required for the %s driver", c.Corpus.Driver)
		}
	default:
		return fmt.Errorf("corpus: unknown driver %q", c.Corpus.Driver)
	}

	if c.Harness.Concurrency < 1 {
		return fmt.Errorf("harness: concurrency must be at least 1")
	}
	if c.Harness.StaleAfterDays < 0 {
		return fmt.Errorf("harness: stale_after_days must not be negative")
	}
	if c.Harness.WatchDebounce < 0 {
		return fmt.Errorf("harness: watch_debounce must not be negative")
	}

	switch c.Log.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server: addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server: max_body_bytes must be positive")
	}

	if len(c.Jurisdictions) > 0 {
		if _, err := c.Registry(); err != nil {
			return fmt.Errorf("jurisdictions: %w", err)
		}
	}
	return nil
}

// Registry returns the default jurisdiction registry extended with the
// configured jurisdictions.
func (c *Config) Registry() (*types.JurisdictionRegistry, error) {
	registry := types.DefaultJurisdictionRegistry()
	if len(c.Jurisdictions) == 0 {
		return registry, nil
	}
	return registry.Extend(c.Jurisdictions...)
}
