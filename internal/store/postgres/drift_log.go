package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vitaliisemenov/driftctl/internal/database/postgres"
	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// DriftLog is the Postgres-backed, append-only DriftLog. Idempotency on
// redelivery comes from a unique constraint on
// (instance_id, expected_hash, applied_hash, detected_at), matching
// domain.DriftEvent.DedupKey.
type DriftLog struct {
	db      postgres.DatabaseConnection
	logger  *slog.Logger
	metrics *StoreMetrics
}

func NewDriftLog(db postgres.DatabaseConnection, metrics *StoreMetrics, logger *slog.Logger) *DriftLog {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewStoreMetrics()
	}
	return &DriftLog{db: db, logger: logger.With("component", "store.postgres.driftlog"), metrics: metrics}
}

// Save appends event, incrementing the owning instance's
// drift_event_count only when a new row was actually inserted so a
// redelivered batch never double-counts.
func (l *DriftLog) Save(ctx context.Context, event domain.DriftEvent) error {
	start := time.Now()
	const op = "drift_event_save"

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	instanceID, expectedHash, appliedHash, detectedAt := event.DedupKey()

	tag, err := l.db.Exec(ctx, `
		INSERT INTO drift_events (
			id, service_name, instance_id, service_id, team_id, environment,
			expected_hash, applied_hash, severity, status, detected_at,
			detected_by, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (instance_id, expected_hash, applied_hash, detected_at) DO NOTHING`,
		event.ID, event.ServiceName, instanceID, event.ServiceID, event.TeamID, event.Environment,
		expectedHash, appliedHash, event.Severity, event.Status, detectedAt,
		event.DetectedBy, event.Notes,
	)
	if err != nil {
		l.metrics.observe(op, start, err)
		return err
	}

	if tag.RowsAffected() > 0 {
		_, err = l.db.Exec(ctx, `
			UPDATE service_instances
			SET drift_event_count = drift_event_count + 1
			WHERE instance_id = $1`, instanceID)
	}
	l.metrics.observe(op, start, err)
	return err
}

func (l *DriftLog) CountForInstance(ctx context.Context, instanceID string) (int64, error) {
	start := time.Now()
	const op = "drift_event_count"

	var count int64
	err := l.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM drift_events WHERE instance_id = $1`, instanceID,
	).Scan(&count)
	l.metrics.observe(op, start, err)
	return count, err
}
