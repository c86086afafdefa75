package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// DatabaseConfig locates the account database
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// UpstreamConfig configures the upstream API client
type UpstreamConfig struct {
	BaseURL        string            `yaml:"base_url"`
	RequestTimeout string            `yaml:"request_timeout"`
	UserAgent      string            `yaml:"user_agent"`
	QueryIDs       map[string]string `yaml:"query_ids,omitempty"` // operation name -> query id
}

// CacheConfig sizes the in-memory caches
type CacheConfig struct {
	ResultTTL           string `yaml:"result_ttl"`
	ResultCapacity      int    `yaml:"result_capacity"`
	SuppressionWindow   string `yaml:"suppression_window"`
	SuppressionCapacity int    `yaml:"suppression_capacity"`
	RecacheCapacity     int    `yaml:"recache_capacity"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level           string `yaml:"level"`
	DiagnosticsPath string `yaml:"diagnostics_path"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:5000",
			ReadTimeout:  "30s",
			WriteTimeout: "2m",
		},
		Database: DatabaseConfig{
			Path: DatabasePath(),
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://api.twitter.com/graphql",
			RequestTimeout: "30s",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Cache: CacheConfig{
			ResultTTL:           "15m",
			ResultCapacity:      2000,
			SuppressionWindow:   "5m",
			SuppressionCapacity: 100,
			RecacheCapacity:     10000,
		},
		Logging: LoggingConfig{
			Level:           "info",
			DiagnosticsPath: DiagnosticsPath(),
		},
	}
}

// AppDir returns the application directory (~/.hydrus-api)
func AppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hydrus-api"
	}
	return filepath.Join(home, ".hydrus-api")
}

// DatabasePath returns the default database path
func DatabasePath() string {
	return filepath.Join(AppDir(), "master.db")
}

// DiagnosticsPath returns the default diagnostics journal path
func DiagnosticsPath() string {
	return filepath.Join(AppDir(), "diagnostics.log")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// EnsureDirs creates all required directories
func EnsureDirs() error {
	if err := os.MkdirAll(AppDir(), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", AppDir(), err)
	}
	return nil
}

// Load reads config from file, returns default if not exists
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads config from default path
func LoadDefault() (*Config, error) {
	return Load(ConfigPath())
}

// Save writes config to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveDefault saves config to default path
func (c *Config) SaveDefault() error {
	return c.Save(ConfigPath())
}

// Validate checks every duration parses and every capacity is positive
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"upstream.request_timeout": c.Upstream.RequestTimeout,
		"cache.result_ttl":         c.Cache.ResultTTL,
		"cache.suppression_window": c.Cache.SuppressionWindow,
	}
	for key, value := range durations {
		if _, err := ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	capacities := map[string]int{
		"cache.result_capacity":      c.Cache.ResultCapacity,
		"cache.suppression_capacity": c.Cache.SuppressionCapacity,
		"cache.recache_capacity":     c.Cache.RecacheCapacity,
	}
	for key, value := range capacities {
		if value <= 0 {
			return fmt.Errorf("invalid %s: must be positive, got %d", key, value)
		}
	}
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := ParseDuration(s)
	return d
}

// ReadTimeout returns the server read timeout
func (c *Config) ReadTimeout() time.Duration { return mustDuration(c.Server.ReadTimeout) }

// WriteTimeout returns the server write timeout
func (c *Config) WriteTimeout() time.Duration { return mustDuration(c.Server.WriteTimeout) }

// RequestTimeout returns the per-call upstream timeout
func (c *Config) RequestTimeout() time.Duration { return mustDuration(c.Upstream.RequestTimeout) }

// ResultTTL returns how long a discovered item stays cached
func (c *Config) ResultTTL() time.Duration { return mustDuration(c.Cache.ResultTTL) }

// SuppressionWindow returns how long a rate-limited account is skipped
func (c *Config) SuppressionWindow() time.Duration { return mustDuration(c.Cache.SuppressionWindow) }

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParseDuration parses duration strings like "30s", "15m", "24h", "7d"
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s (use format like 30s, 15m, 24h, 7d)", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
}
