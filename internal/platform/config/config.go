// Package config loads application configuration from an optional YAML file
// and environment variables. Environment variables use the TRACKER_ prefix
// with dots replaced by underscores (server.port → TRACKER_SERVER_PORT).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	sqliteFileName = "learning.db"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Events   EventsConfig   `mapstructure:"events"`
	Log      LogConfig      `mapstructure:"log"`
	SeedFile string         `mapstructure:"seed_file"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver  string `mapstructure:"driver"`
	DataDir string `mapstructure:"data_dir"`
}

// SQLitePath is the database file used by the sqlite driver.
func (s StoreConfig) SQLitePath() string {
	return filepath.Join(s.DataDir, sqliteFileName)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnectAttempts uint   `mapstructure:"connect_attempts"`
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// Redis event stream.
type CacheConfig struct {
	URL string `mapstructure:"url"`
}

// EventsConfig controls where progress events are published.
type EventsConfig struct {
	Stream string `mapstructure:"stream"`
	MaxLen int64  `mapstructure:"max_len"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. When configFile is empty, tracker.yaml is looked
// up in the working directory and a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("tracker")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.connect_attempts", 5)
	v.SetDefault("cache.url", "")
	v.SetDefault("events.stream", "learning-tracker:events")
	v.SetDefault("events.max_len", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("seed_file", "")

	// Tutorial projects set MULTIVAC_DATA_DIR for the tracker they launch.
	if err := v.BindEnv("store.data_dir", "TRACKER_STORE_DATA_DIR", "MULTIVAC_DATA_DIR"); err != nil {
		return nil, fmt.Errorf("binding data dir environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("TRACKER_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.DataDir == "" {
			return fmt.Errorf("TRACKER_STORE_DATA_DIR is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("TRACKER_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("TRACKER_STORE_DRIVER must be 'sqlite' or 'postgres', got %q", c.Store.Driver)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("TRACKER_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

// EventsEnabled reports whether progress events go to Redis.
func (c *Config) EventsEnabled() bool {
	return c.Cache.URL != ""
}
