// Package main provides the PulseWatch server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	API           APIConfig           `yaml:"api"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Verbose       bool                `yaml:"-"` // set via CLI flag
}

// DatabaseConfig contains SQLite settings for rule and alert state.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file (default: ./data/pulsewatch.db)
}

// MetricsConfig contains the metric source and the Prometheus endpoint.
type MetricsConfig struct {
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
	ListenAddress string           `yaml:"listen_address"` // Prometheus /metrics address (default: :9090)
}

// ClickHouseConfig contains ClickHouse connection settings. When disabled
// the server falls back to an in-memory metric store, useful for local
// development only.
type ClickHouseConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Addresses     []string `yaml:"addresses"`
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	QueryTimeout  string   `yaml:"query_timeout"`
	RetentionDays int      `yaml:"retention_days"`
}

// APIConfig contains HTTP API settings.
type APIConfig struct {
	Address      string `yaml:"address"`       // HTTP listen address (default: :8080)
	QueryTimeout string `yaml:"query_timeout"` // per-request storage timeout (default: 10s)
}

// SchedulerConfig controls the evaluation and escalation loops.
type SchedulerConfig struct {
	Workspaces         []string `yaml:"workspaces"`          // workspace IDs to evaluate
	EvaluateInterval   string   `yaml:"evaluate_interval"`   // default: 30s
	EscalationInterval string   `yaml:"escalation_interval"` // default: 1m
	HistoryRetention   string   `yaml:"history_retention"`   // prune delivery history older than this, empty disables
}

// NotificationsConfig contains delivery channel settings.
type NotificationsConfig struct {
	ChannelsFile  string  `yaml:"channels_file"`   // YAML channel definitions, hot-reloaded on change
	RatePerSecond float64 `yaml:"rate_per_second"` // global delivery rate limit (default: 10)
	RateBurst     int     `yaml:"rate_burst"`      // burst allowance (default: 20)
	DisableReload bool    `yaml:"disable_reload"`  // turn off file watching
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "./data/pulsewatch.db"
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9090"
	}
	if c.API.Address == "" {
		c.API.Address = ":8080"
	}
	if c.API.QueryTimeout == "" {
		c.API.QueryTimeout = "10s"
	}
	if c.Scheduler.EvaluateInterval == "" {
		c.Scheduler.EvaluateInterval = "30s"
	}
	if c.Scheduler.EscalationInterval == "" {
		c.Scheduler.EscalationInterval = "1m"
	}
	if len(c.Scheduler.Workspaces) == 0 {
		c.Scheduler.Workspaces = []string{"default"}
	}
	if c.Notifications.RatePerSecond == 0 {
		c.Notifications.RatePerSecond = 10
	}
	if c.Notifications.RateBurst == 0 {
		c.Notifications.RateBurst = 20
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Metrics.ClickHouse.Enabled && len(c.Metrics.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("metrics.clickhouse.addresses is required when ClickHouse is enabled")
	}
	durations := []struct {
		name  string
		value string
	}{
		{"api.query_timeout", c.API.QueryTimeout},
		{"scheduler.evaluate_interval", c.Scheduler.EvaluateInterval},
		{"scheduler.escalation_interval", c.Scheduler.EscalationInterval},
		{"scheduler.history_retention", c.Scheduler.HistoryRetention},
		{"metrics.clickhouse.query_timeout", c.Metrics.ClickHouse.QueryTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %q", d.name, d.value)
		}
	}
	if c.Notifications.RatePerSecond < 0 {
		return fmt.Errorf("notifications.rate_per_second must not be negative")
	}
	return nil
}

// duration parses a validated duration string, returning fallback for "".
func duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
