package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Path != "./data/pulsewatch.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.API.Address != ":8080" {
		t.Errorf("api address = %q", cfg.API.Address)
	}
	if cfg.Scheduler.EvaluateInterval != "30s" {
		t.Errorf("evaluate interval = %q", cfg.Scheduler.EvaluateInterval)
	}
	if len(cfg.Scheduler.Workspaces) != 1 || cfg.Scheduler.Workspaces[0] != "default" {
		t.Errorf("workspaces = %v", cfg.Scheduler.Workspaces)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate_RejectsInvalidDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.EvaluateInterval = "not-a-duration"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for invalid scheduler.evaluate_interval")
	}
}

func TestConfigValidate_RequiresClickHouseAddresses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.ClickHouse.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when ClickHouse is enabled without addresses")
	}
}

func TestLoadConfig(t *testing.T) {
	yaml := `
database:
  path: /tmp/pw.db
metrics:
  clickhouse:
    enabled: true
    addresses: ["ch-1:9000", "ch-2:9000"]
    database: pulsewatch
scheduler:
  workspaces: ["ws-1", "ws-2"]
  evaluate_interval: 15s
  history_retention: 720h
notifications:
  channels_file: /etc/pulsewatch/channels.yaml
  rate_per_second: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Database.Path != "/tmp/pw.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if len(cfg.Metrics.ClickHouse.Addresses) != 2 {
		t.Errorf("clickhouse addresses = %v", cfg.Metrics.ClickHouse.Addresses)
	}
	if cfg.Scheduler.EvaluateInterval != "15s" {
		t.Errorf("evaluate interval = %q", cfg.Scheduler.EvaluateInterval)
	}
	// Unset fields still get defaults.
	if cfg.API.Address != ":8080" {
		t.Errorf("api address = %q", cfg.API.Address)
	}
	if cfg.Notifications.RateBurst != 20 {
		t.Errorf("rate burst = %d", cfg.Notifications.RateBurst)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
