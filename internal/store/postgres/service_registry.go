package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/google/uuid"

	"github.com/vitaliisemenov/driftctl/internal/database/postgres"
	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// ServiceRegistry is the Postgres-backed ServiceRegistry.
type ServiceRegistry struct {
	db      postgres.DatabaseConnection
	logger  *slog.Logger
	metrics *StoreMetrics
}

func NewServiceRegistry(db postgres.DatabaseConnection, metrics *StoreMetrics, logger *slog.Logger) *ServiceRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewStoreMetrics()
	}
	return &ServiceRegistry{db: db, logger: logger.With("component", "store.postgres.registry"), metrics: metrics}
}

// FindByDisplayNames bulk-reads every known service among displayNames
// in one round trip; names with no row are absent from the result.
func (r *ServiceRegistry) FindByDisplayNames(ctx context.Context, displayNames []string) (map[string]domain.ApplicationService, error) {
	out := make(map[string]domain.ApplicationService)
	if len(displayNames) == 0 {
		return out, nil
	}

	start := time.Now()
	const op = "service_find_by_display_names"

	rows, err := r.db.Query(ctx, `
		SELECT id, display_name, owner_team_id, environments, lifecycle,
		       created_at, updated_at, created_by, orphaned_at
		FROM application_services
		WHERE display_name = ANY($1)`, displayNames)
	if err != nil {
		r.metrics.observe(op, start, err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			r.metrics.observe(op, start, err)
			return nil, err
		}
		out[svc.DisplayName] = *svc
	}
	err = rows.Err()
	r.metrics.observe(op, start, err)
	return out, err
}

func scanService(row pgx.Row) (*domain.ApplicationService, error) {
	var svc domain.ApplicationService
	var environmentsJSON []byte

	err := row.Scan(
		&svc.ID, &svc.DisplayName, &svc.OwnerTeamID, &environmentsJSON,
		&svc.Lifecycle, &svc.CreatedAt, &svc.UpdatedAt, &svc.CreatedBy, &svc.OrphanedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(environmentsJSON) > 0 {
		if err := json.Unmarshal(environmentsJSON, &svc.Environments); err != nil {
			return nil, err
		}
	}
	return &svc, nil
}

// Save idempotently inserts or updates a service. A fresh orphan is
// assigned a UUID here if it has none; a concurrent first-heartbeat
// race on the same DisplayName resolves through the unique constraint
// on display_name — the losing insert becomes a no-op update instead
// of a duplicate row, resolving the orphan-creation race from
// SPEC_FULL §9.2.
func (r *ServiceRegistry) Save(ctx context.Context, service domain.ApplicationService) error {
	start := time.Now()
	const op = "service_save"

	if service.ID == "" {
		service.ID = uuid.NewString()
	}

	environmentsJSON, err := json.Marshal(service.Environments)
	if err != nil {
		r.metrics.observe(op, start, err)
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO application_services (
			id, display_name, owner_team_id, environments, lifecycle,
			created_at, updated_at, created_by, orphaned_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (display_name) DO UPDATE SET
			owner_team_id = EXCLUDED.owner_team_id,
			environments = EXCLUDED.environments,
			lifecycle = EXCLUDED.lifecycle,
			updated_at = EXCLUDED.updated_at,
			orphaned_at = CASE
				WHEN EXCLUDED.owner_team_id = '' THEN application_services.orphaned_at
				ELSE NULL
			END`,
		service.ID, service.DisplayName, service.OwnerTeamID, environmentsJSON,
		service.Lifecycle, service.CreatedAt, service.UpdatedAt, service.CreatedBy, service.OrphanedAt,
	)
	r.metrics.observe(op, start, err)
	return err
}
