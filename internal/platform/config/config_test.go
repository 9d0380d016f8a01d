package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.DatabaseDriver != DriverMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.OutboxBatchSize != 100 {
		t.Fatalf("unexpected worker defaults: %+v", cfg)
	}
}

func TestLoadFileOverlaysYAMLThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballot.yaml")
	body := []byte("serviceName: ballot-test\nhttpPort: \"9090\"\ndatabaseDriver: sqlite\noutboxPollInterval: 250ms\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("ENABLE_LEADER_TRACKER", "false")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.ServiceName != "ballot-test" || cfg.DatabaseDriver != DriverSQLite {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.OutboxPollInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms poll interval, got %s", cfg.OutboxPollInterval)
	}
	if cfg.HTTPPort != "7070" || cfg.EnableLeaderTracker {
		t.Fatalf("environment overlay not applied: %+v", cfg)
	}
}

func TestLoadFileRejectsInvalidDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	if _, err := LoadFile(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	t.Setenv("DATABASE_DRIVER", DriverPostgres)
	t.Setenv("POSTGRES_DSN", "")
	if _, err := LoadFile(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected missing dsn to be rejected, got %v", err)
	}
}
