package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConfigFileEnv names the environment variable holding an optional YAML
// config path.
const ConfigFileEnv = "BALLOT_CONFIG_FILE"

var ErrInvalidConfig = errors.New("invalid config")

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string `yaml:"serviceName"    envconfig:"SERVICE_NAME"`
	HTTPPort       string `yaml:"httpPort"       envconfig:"HTTP_PORT"`
	DatabaseDriver string `yaml:"databaseDriver" envconfig:"DATABASE_DRIVER"`
	PostgresDSN    string `yaml:"postgresDsn"    envconfig:"POSTGRES_DSN"`
	SQLitePath     string `yaml:"sqlitePath"     envconfig:"SQLITE_PATH"`
	AutoMigrate    bool   `yaml:"autoMigrate"    envconfig:"AUTO_MIGRATE"`

	OutboxPollInterval  time.Duration `yaml:"outboxPollInterval"  envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize     int           `yaml:"outboxBatchSize"     envconfig:"OUTBOX_BATCH_SIZE"`
	IdempotencyTTL      time.Duration `yaml:"idempotencyTtl"      envconfig:"IDEMPOTENCY_TTL"`
	EnableLeaderTracker bool          `yaml:"enableLeaderTracker" envconfig:"ENABLE_LEADER_TRACKER"`
}

func defaults() Config {
	return Config{
		ServiceName:         "ballot",
		HTTPPort:            "8080",
		DatabaseDriver:      DriverMemory,
		SQLitePath:          "ballot.db",
		AutoMigrate:         true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		IdempotencyTTL:      24 * time.Hour,
		EnableLeaderTracker: true,
	}
}

// Load reads the file named by BALLOT_CONFIG_FILE, if any, and applies the
// environment on top.
func Load() (Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile starts from defaults, overlays the YAML file at path when path is
// not empty, then overlays environment variables.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	if path = strings.TrimSpace(path); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres driver requires POSTGRES_DSN", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	if strings.TrimSpace(c.HTTPPort) == "" {
		return fmt.Errorf("%w: http port is required", ErrInvalidConfig)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("%w: outbox poll interval must be positive", ErrInvalidConfig)
	}
	return nil
}
