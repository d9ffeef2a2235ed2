// Package migrations applies goose-format schema migrations for the
// Service Registry, Instance Store, and Drift Log tables.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/vitaliisemenov/driftctl/internal/resilience"
)

// MigrationFile describes one migration file on disk.
type MigrationFile struct {
	Path     string
	Filename string
}

// MigrationManager applies and inspects goose migrations against the
// configured database.
type MigrationManager struct {
	config *MigrationConfig
	db     *sql.DB
	logger *slog.Logger
	retry  *resilience.RetryPolicy
}

// NewMigrationManager opens the database connection used for migrations.
func NewMigrationManager(config *MigrationConfig) (*MigrationManager, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	return &MigrationManager{
		config: config,
		db:     db,
		logger: logger,
		retry: &resilience.RetryPolicy{
			MaxRetries: config.MaxRetries,
			BaseDelay:  config.RetryDelay,
			MaxDelay:   config.RetryDelay * 4,
			Multiplier: 2.0,
			Jitter:     true,
			Logger:     logger,
		},
	}, nil
}

// Connect verifies the database is reachable.
func (mm *MigrationManager) Connect(ctx context.Context) error {
	if err := mm.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	mm.logger.Info("connected to database for migrations", "driver", mm.config.Driver, "dialect", mm.config.Dialect)
	return nil
}

// Disconnect closes the database connection.
func (mm *MigrationManager) Disconnect(ctx context.Context) error {
	if mm.db == nil {
		return nil
	}
	if err := mm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	mm.logger.Info("disconnected from database")
	return nil
}

func (mm *MigrationManager) withDialect() error {
	if err := goose.SetDialect(mm.config.Dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Up applies every pending migration, retrying per the configured retry
// policy. The policy has no error checker, so every failure is retried.
func (mm *MigrationManager) Up(ctx context.Context) error {
	start := time.Now()
	defer func() { mm.logger.Info("migration up completed", "duration", time.Since(start)) }()

	if err := mm.withDialect(); err != nil {
		return err
	}

	err := resilience.WithRetry(ctx, mm.retry, func() error {
		return goose.Up(mm.db, mm.config.Dir)
	})
	if err != nil {
		return wrapError("up", 0, err)
	}

	mm.logger.Info("all migrations applied successfully")
	return nil
}

// UpTo applies migrations up to and including the given version.
func (mm *MigrationManager) UpTo(ctx context.Context, version int64) error {
	if err := mm.withDialect(); err != nil {
		return err
	}
	if err := goose.UpTo(mm.db, mm.config.Dir, version); err != nil {
		return wrapError("up-to", version, err)
	}
	mm.logger.Info("migrations applied up to version", "version", version)
	return nil
}

// Down rolls back all migrations.
func (mm *MigrationManager) Down(ctx context.Context) error {
	if err := mm.withDialect(); err != nil {
		return err
	}
	if err := goose.Reset(mm.db, mm.config.Dir); err != nil {
		return wrapError("down", 0, err)
	}
	mm.logger.Info("all migrations rolled back successfully")
	return nil
}

// DownTo rolls back migrations down to (but not including) the given version.
func (mm *MigrationManager) DownTo(ctx context.Context, version int64) error {
	if err := mm.withDialect(); err != nil {
		return err
	}
	if err := goose.DownTo(mm.db, mm.config.Dir, version); err != nil {
		return wrapError("down-to", version, err)
	}
	mm.logger.Info("migrations rolled back to version", "version", version)
	return nil
}

// DownByOne rolls back the most recently applied migration.
func (mm *MigrationManager) DownByOne(ctx context.Context) error {
	if err := mm.withDialect(); err != nil {
		return err
	}
	if err := goose.Down(mm.db, mm.config.Dir); err != nil {
		return wrapError("down-by-one", 0, err)
	}
	mm.logger.Info("previous migration rolled back successfully")
	return nil
}

// Status prints the applied/pending status of every migration to the logger.
func (mm *MigrationManager) Status(ctx context.Context) error {
	if err := mm.withDialect(); err != nil {
		return err
	}
	if err := goose.Status(mm.db, mm.config.Dir); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

// Version returns the current applied migration version.
func (mm *MigrationManager) Version(ctx context.Context) (int64, error) {
	if err := mm.withDialect(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersion(mm.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, nil
}

// List returns every migration file found in the migrations directory.
func (mm *MigrationManager) List() ([]MigrationFile, error) {
	files, err := filepath.Glob(filepath.Join(mm.config.Dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migration files: %w", err)
	}

	out := make([]MigrationFile, 0, len(files))
	for _, file := range files {
		out = append(out, MigrationFile{Path: file, Filename: filepath.Base(file)})
	}
	return out, nil
}

// HealthCheck verifies the database connection and migration
// bookkeeping table are in a usable state.
func (mm *MigrationManager) HealthCheck(ctx context.Context) error {
	if err := mm.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`
	if err := mm.db.QueryRowContext(ctx, query, mm.config.Table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check migration table: %w", err)
	}
	if !exists {
		mm.logger.Warn("migration table does not exist", "table", mm.config.Table)
	}
	return nil
}
