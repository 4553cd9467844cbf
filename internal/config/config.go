// Package config loads the harness configuration from a YAML file with
// environment variable overrides, so credentials can live in .env locally
// and in real env vars on CI hosts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a load-test run.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Test     TestConfig     `yaml:"test"`
	Server   ServerConfig   `yaml:"server"`
}

// DatabaseConfig holds target database connection settings.
type DatabaseConfig struct {
	Type                  string `yaml:"type"`
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	Database              string `yaml:"database"`
	SID                   string `yaml:"sid"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	MinPoolSize           int    `yaml:"min_pool_size"`
	MaxPoolSize           int    `yaml:"max_pool_size"`
	AcquireTimeoutSeconds int    `yaml:"acquire_timeout_seconds"`
}

// AcquireTimeout returns the pool acquisition timeout as a duration.
func (c DatabaseConfig) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutSeconds) * time.Second
}

// TestConfig holds the load shape.
type TestConfig struct {
	ThreadCount            int `yaml:"thread_count"`
	DurationSeconds        int `yaml:"duration_seconds"`
	MonitorIntervalSeconds int `yaml:"monitor_interval_seconds"`
}

// Duration returns the configured test duration.
func (c TestConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// MonitorInterval returns the monitor wake interval.
func (c TestConfig) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

// ServerConfig holds the observability HTTP server settings.
type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			MinPoolSize:           100,
			MaxPoolSize:           200,
			AcquireTimeoutSeconds: 30,
		},
		Test: TestConfig{
			ThreadCount:            100,
			DurationSeconds:        300,
			MonitorIntervalSeconds: 5,
		},
		Server: ServerConfig{
			MetricsPort: 9090,
		},
	}
}

// Load reads and parses the configuration file, filling defaults for
// anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides. A
// .env file is loaded first if present (no error when missing). An empty
// path yields the defaults.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("DBFLOOD_DB_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("DBFLOOD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DBFLOOD_DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DBFLOOD_DB_PORT: %w", err)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("DBFLOOD_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DBFLOOD_DB_SID"); v != "" {
		cfg.Database.SID = v
	}
	if v := os.Getenv("DBFLOOD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DBFLOOD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Database.MinPoolSize == 0 {
		c.Database.MinPoolSize = def.Database.MinPoolSize
	}
	if c.Database.MaxPoolSize == 0 {
		c.Database.MaxPoolSize = def.Database.MaxPoolSize
	}
	if c.Database.AcquireTimeoutSeconds == 0 {
		c.Database.AcquireTimeoutSeconds = def.Database.AcquireTimeoutSeconds
	}
	if c.Test.ThreadCount == 0 {
		c.Test.ThreadCount = def.Test.ThreadCount
	}
	if c.Test.DurationSeconds == 0 {
		c.Test.DurationSeconds = def.Test.DurationSeconds
	}
	if c.Test.MonitorIntervalSeconds == 0 {
		c.Test.MonitorIntervalSeconds = def.Test.MonitorIntervalSeconds
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = def.Server.MetricsPort
	}
}

// Validate reports the first structural problem with the configuration.
// Product-specific requirements (host, database name) are enforced by the
// adapter when it builds its DSN.
func (c *Config) Validate() error {
	if c.Database.Type == "" {
		return fmt.Errorf("database type is required")
	}
	if c.Database.MinPoolSize < 0 {
		return fmt.Errorf("min pool size must not be negative, got %d", c.Database.MinPoolSize)
	}
	if c.Database.MaxPoolSize < 1 {
		return fmt.Errorf("max pool size must be positive, got %d", c.Database.MaxPoolSize)
	}
	if c.Database.MinPoolSize > c.Database.MaxPoolSize {
		return fmt.Errorf("min pool size %d exceeds max pool size %d",
			c.Database.MinPoolSize, c.Database.MaxPoolSize)
	}
	if c.Test.ThreadCount < 1 {
		return fmt.Errorf("thread count must be positive, got %d", c.Test.ThreadCount)
	}
	if c.Test.DurationSeconds < 1 {
		return fmt.Errorf("test duration must be positive, got %d", c.Test.DurationSeconds)
	}
	if c.Test.MonitorIntervalSeconds < 1 {
		return fmt.Errorf("monitor interval must be positive, got %d", c.Test.MonitorIntervalSeconds)
	}
	return nil
}
