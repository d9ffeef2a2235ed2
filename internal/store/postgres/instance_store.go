// Package postgres implements internal/store's ports against the
// shared PostgreSQL connection pool in internal/database/postgres.
package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vitaliisemenov/driftctl/internal/database/postgres"
	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// StoreMetrics instruments every query issued by this package with a
// per-operation duration/error shape shared across the store layer.
type StoreMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "driftctl", Subsystem: "store", Name: "query_duration_seconds",
			Help:    "Duration of store queries.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "driftctl", Subsystem: "store", Name: "query_errors_total",
			Help: "Store query errors by operation.",
		}, []string{"operation"}),
	}
}

func (m *StoreMetrics) observe(operation string, start time.Time, err error) {
	m.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(operation).Inc()
	}
}

// InstanceStore is the Postgres-backed InstanceStore.
type InstanceStore struct {
	db      postgres.DatabaseConnection
	logger  *slog.Logger
	metrics *StoreMetrics
}

func NewInstanceStore(db postgres.DatabaseConnection, metrics *StoreMetrics, logger *slog.Logger) *InstanceStore {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewStoreMetrics()
	}
	return &InstanceStore{db: db, logger: logger.With("component", "store.postgres.instance"), metrics: metrics}
}

// FindByIDs bulk-reads every known instance among instanceIDs in a
// single query; IDs with no row are simply absent from the result.
func (s *InstanceStore) FindByIDs(ctx context.Context, instanceIDs []string) ([]domain.ServiceInstance, error) {
	if len(instanceIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	const op = "instance_find_by_ids"

	rows, err := s.db.Query(ctx, `
		SELECT instance_id, service_id, team_id, host, port, environment, version,
		       metadata, last_applied_hash, last_seen_at, created_at, updated_at,
		       status, has_drift, drift_detected_at, expected_hash, config_hash,
		       drift_event_count
		FROM service_instances
		WHERE instance_id = ANY($1)`, instanceIDs)
	if err != nil {
		s.metrics.observe(op, start, err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServiceInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			s.metrics.observe(op, start, err)
			return nil, err
		}
		out = append(out, *inst)
	}
	err = rows.Err()
	s.metrics.observe(op, start, err)
	return out, err
}

func scanInstance(row pgx.Row) (*domain.ServiceInstance, error) {
	var inst domain.ServiceInstance
	var metadataJSON []byte

	err := row.Scan(
		&inst.InstanceID, &inst.ServiceID, &inst.TeamID, &inst.Host, &inst.Port,
		&inst.Environment, &inst.Version, &metadataJSON, &inst.LastAppliedHash,
		&inst.LastSeenAt, &inst.CreatedAt, &inst.UpdatedAt, &inst.Status,
		&inst.HasDrift, &inst.DriftDetectedAt, &inst.ExpectedHash, &inst.ConfigHash,
		&inst.DriftEventCount,
	)
	if err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &inst.Metadata); err != nil {
			return nil, err
		}
	}
	return &inst, nil
}

// BulkUpsert writes every instance in a single transaction via one
// INSERT ... ON CONFLICT DO UPDATE per row, so a partial batch failure
// rolls back cleanly instead of leaving some instances updated and
// others stale. `xmax = 0` in the RETURNING clause is the standard
// Postgres trick for telling an inserted row from an updated one
// within a single ON CONFLICT statement.
func (s *InstanceStore) BulkUpsert(ctx context.Context, instances []domain.ServiceInstance) (inserted, modified int, err error) {
	if len(instances) == 0 {
		return 0, 0, nil
	}

	start := time.Now()
	const op = "instance_bulk_upsert"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.metrics.observe(op, start, err)
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	inserted, modified, err = s.upsertDirect(ctx, tx, instances)
	if err != nil {
		s.metrics.observe(op, start, err)
		return 0, 0, err
	}

	err = tx.Commit(ctx)
	s.metrics.observe(op, start, err)
	if err != nil {
		return 0, 0, err
	}
	return inserted, modified, nil
}

func (s *InstanceStore) upsertDirect(ctx context.Context, tx pgx.Tx, instances []domain.ServiceInstance) (inserted, modified int, err error) {
	for _, inst := range instances {
		metadataJSON, err := json.Marshal(inst.Metadata)
		if err != nil {
			return 0, 0, err
		}
		var wasInsert bool
		err = tx.QueryRow(ctx, `
			INSERT INTO service_instances (
				instance_id, service_id, team_id, host, port, environment, version,
				metadata, last_applied_hash, last_seen_at, created_at, updated_at,
				status, has_drift, drift_detected_at, expected_hash, config_hash,
				drift_event_count
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			ON CONFLICT (instance_id) DO UPDATE SET
				service_id = EXCLUDED.service_id, team_id = EXCLUDED.team_id,
				host = EXCLUDED.host, port = EXCLUDED.port,
				environment = EXCLUDED.environment, version = EXCLUDED.version,
				metadata = EXCLUDED.metadata, last_applied_hash = EXCLUDED.last_applied_hash,
				last_seen_at = EXCLUDED.last_seen_at, updated_at = EXCLUDED.updated_at,
				status = EXCLUDED.status, has_drift = EXCLUDED.has_drift,
				drift_detected_at = EXCLUDED.drift_detected_at, expected_hash = EXCLUDED.expected_hash,
				config_hash = EXCLUDED.config_hash, drift_event_count = EXCLUDED.drift_event_count
			RETURNING (xmax = 0)`,
			inst.InstanceID, inst.ServiceID, inst.TeamID, inst.Host, inst.Port,
			inst.Environment, inst.Version, metadataJSON, inst.LastAppliedHash,
			inst.LastSeenAt, inst.CreatedAt, inst.UpdatedAt, inst.Status,
			inst.HasDrift, inst.DriftDetectedAt, inst.ExpectedHash, inst.ConfigHash,
			inst.DriftEventCount,
		).Scan(&wasInsert)
		if err != nil {
			return 0, 0, err
		}
		if wasInsert {
			inserted++
		} else {
			modified++
		}
	}
	return inserted, modified, nil
}
