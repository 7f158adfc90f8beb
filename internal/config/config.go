// Package config loads service configuration from an optional YAML file
// and DEBOND_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"debond-math/internal/logging"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// StorageConfig selects and configures the stores
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"` // optional; rate snapshots stay in memory without it
	Migrate       bool   `mapstructure:"migrate"`
}

// SnapshotConfig holds the periodic rate snapshot job configuration
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"` // six fields, seconds first
}

// FeedConfig holds the auction price feed configuration
type FeedConfig struct {
	MinInterval     time.Duration `mapstructure:"min_interval"`
	DefaultInterval time.Duration `mapstructure:"default_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// Load reads configuration from file (if path is non-empty) and environment
// variables. DEBOND_SERVER_ADDR overrides server.addr, and so on.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DEBOND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.migrate", true)

	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.cron", "0 */5 * * * *")

	v.SetDefault("feed.min_interval", "1s")
	v.SetDefault("feed.default_interval", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.namespace", "debond")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive")
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: memory, postgres")
	}

	if c.Snapshot.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Snapshot.Cron); err != nil {
			return fmt.Errorf("snapshot.cron is invalid: %w", err)
		}
	}

	if c.Feed.MinInterval <= 0 {
		return fmt.Errorf("feed.min_interval must be positive")
	}
	if c.Feed.DefaultInterval < c.Feed.MinInterval {
		return fmt.Errorf("feed.default_interval must be at least feed.min_interval")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{logging.FormatJSON: true, logging.FormatText: true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: %s, %s", logging.FormatJSON, logging.FormatText)
	}

	if c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required")
	}

	return nil
}
