// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QUESTHUNT_STORAGE_DRIVER.
const EnvPrefix = "QUESTHUNT"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig selects and configures the key-value store.
type StorageConfig struct {
	Driver      string        `mapstructure:"driver"`
	Path        string        `mapstructure:"path"`
	CacheSize   int           `mapstructure:"cache_size"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the postgres driver.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// EconomyConfig holds the profile created on first run.
type EconomyConfig struct {
	StartingCoins   int64  `mapstructure:"starting_coins"`
	DefaultNickname string `mapstructure:"default_nickname"`
}

// SchedulerConfig controls the in-process cooldown wake-ups.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Location resolves the configured timezone, falling back to the local zone.
func (a *AppConfig) Location() (*time.Location, error) {
	switch strings.TrimSpace(a.Timezone) {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. QUESTHUNT_STORAGE_DRIVER, QUESTHUNT_APP_TIMEZONE
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Economy.StartingCoins < 0 {
		return fmt.Errorf("economy.starting_coins must not be negative")
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("app.log_level", "warn")

	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.path", defaultDataDir())
	v.SetDefault("storage.cache_size", 16)
	v.SetDefault("storage.lock_timeout", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "questhunt")
	v.SetDefault("database.name", "questhunt")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("economy.starting_coins", 0)
	v.SetDefault("economy.default_nickname", "Hero")

	v.SetDefault("scheduler.enabled", true)
}

// defaultDataDir returns ~/.questhunt, or ./.questhunt when the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".questhunt"
	}
	return filepath.Join(home, ".questhunt")
}
