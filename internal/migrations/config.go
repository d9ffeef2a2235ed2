package migrations

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// MigrationConfig configures the goose-backed schema migration runner
// for the Service Registry / Instance Store / Drift Log tables.
type MigrationConfig struct {
	Driver  string
	DSN     string
	Dialect string

	Dir   string
	Table string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	Verbose bool

	// Logger is not populated from the environment; callers set it
	// after LoadConfig returns.
	Logger *slog.Logger
}

// LoadConfig loads the migration runner's configuration from
// environment variables.
func LoadConfig() (*MigrationConfig, error) {
	cfg := &MigrationConfig{
		Driver:     getEnvString("MIGRATION_DRIVER", "postgres"),
		DSN:        getEnvString("MIGRATION_DSN", ""),
		Dir:        getEnvString("MIGRATION_DIR", "migrations"),
		Table:      getEnvString("MIGRATION_TABLE", "goose_db_version"),
		Timeout:    getEnvDuration("MIGRATION_TIMEOUT", 5*time.Minute),
		MaxRetries: getEnvInt("MIGRATION_MAX_RETRIES", 3),
		RetryDelay: getEnvDuration("MIGRATION_RETRY_DELAY", 5*time.Second),
		Verbose:    getEnvBool("MIGRATION_VERBOSE", false),
	}
	cfg.Dialect = getEnvString("MIGRATION_DIALECT", cfg.Driver)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid migration configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *MigrationConfig) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("database driver cannot be empty")
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.Dir == "" {
		return fmt.Errorf("migration directory cannot be empty")
	}
	if c.Table == "" {
		return fmt.Errorf("migration table name cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
