package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	dbpostgres "github.com/vitaliisemenov/driftctl/internal/database/postgres"
	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// setupTestDB spins up a real disposable PostgreSQL container with the
// schema created inline, so the test stays self-contained without
// depending on the migration runner.
func setupTestDB(t *testing.T) dbpostgres.DatabaseConnection {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("driftctl_test"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := dbpostgres.DefaultConfig()
	cfg.Host = host
	cfg.Port = port.Int()
	cfg.Database = "driftctl_test"
	cfg.User = "testuser"
	cfg.Password = "testpassword"

	pool := dbpostgres.NewPostgresPool(cfg, nil)
	require.NoError(t, pool.Connect(ctx))
	t.Cleanup(func() { _ = pool.Disconnect(ctx) })

	schema := `
	CREATE TABLE service_instances (
		instance_id TEXT PRIMARY KEY,
		service_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		host TEXT NOT NULL,
		port INT NOT NULL,
		environment TEXT NOT NULL,
		version TEXT NOT NULL,
		metadata JSONB,
		last_applied_hash TEXT,
		last_seen_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		has_drift BOOLEAN NOT NULL DEFAULT false,
		drift_detected_at TIMESTAMPTZ,
		expected_hash TEXT,
		config_hash TEXT,
		drift_event_count BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE application_services (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL UNIQUE,
		owner_team_id TEXT NOT NULL,
		environments JSONB,
		lifecycle TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		created_by TEXT NOT NULL,
		orphaned_at TIMESTAMPTZ
	);

	CREATE TABLE drift_events (
		id TEXT PRIMARY KEY,
		service_name TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		team_id TEXT NOT NULL,
		environment TEXT NOT NULL,
		expected_hash TEXT NOT NULL,
		applied_hash TEXT NOT NULL,
		severity TEXT NOT NULL,
		status TEXT NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL,
		detected_by TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		UNIQUE (instance_id, expected_hash, applied_hash, detected_at)
	);
	`
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)

	return pool
}

func TestInstanceStore_BulkUpsertAndFindByIDs(t *testing.T) {
	db := setupTestDB(t)
	store := NewInstanceStore(db, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	inst := domain.ServiceInstance{
		InstanceID:  "inst-1",
		ServiceID:   "svc-1",
		TeamID:      "team-a",
		Host:        "10.0.0.1",
		Port:        8080,
		Environment: "production",
		Version:     "1.0.0",
		Metadata:    map[string]string{"region": "us-east-1"},
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      domain.StatusHealthy,
	}

	inserted, modified, err := store.BulkUpsert(ctx, []domain.ServiceInstance{inst})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.Equal(t, 0, modified)

	found, err := store.FindByIDs(ctx, []string{"inst-1", "does-not-exist"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "svc-1", found[0].ServiceID)
	require.Equal(t, "us-east-1", found[0].Metadata["region"])

	inst.Version = "1.0.1"
	inserted, modified, err = store.BulkUpsert(ctx, []domain.ServiceInstance{inst})
	require.NoError(t, err)
	require.Equal(t, 0, inserted)
	require.Equal(t, 1, modified)

	found, err = store.FindByIDs(ctx, []string{"inst-1"})
	require.NoError(t, err)
	require.Equal(t, "1.0.1", found[0].Version)
}

func TestInstanceStore_FindByIDsSkipsUnknown(t *testing.T) {
	db := setupTestDB(t)
	store := NewInstanceStore(db, nil, nil)

	found, err := store.FindByIDs(context.Background(), []string{"does-not-exist"})
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestServiceRegistry_SaveIsIdempotentOnDisplayName(t *testing.T) {
	db := setupTestDB(t)
	registry := NewServiceRegistry(db, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	orphan := domain.NewOrphan("unknown-service", now)
	require.NoError(t, registry.Save(ctx, orphan))
	require.NoError(t, registry.Save(ctx, orphan))

	got, err := registry.FindByDisplayNames(ctx, []string{"unknown-service"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got["unknown-service"].IsOrphan())
}

func TestDriftLog_SaveIsIdempotentAndIncrementsCount(t *testing.T) {
	db := setupTestDB(t)
	instances := NewInstanceStore(db, nil, nil)
	log := NewDriftLog(db, nil, nil)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, _, err := instances.BulkUpsert(ctx, []domain.ServiceInstance{{
		InstanceID:  "inst-2",
		ServiceID:   "svc-2",
		TeamID:      "team-a",
		Host:        "10.0.0.2",
		Port:        8080,
		Environment: "production",
		Version:     "1.0.0",
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      domain.StatusHealthy,
	}})
	require.NoError(t, err)

	event := domain.NewDriftEvent("svc-2", "inst-2", "svc-2", "team-a", "production", "hash-a", "hash-b", now)

	require.NoError(t, log.Save(ctx, event))
	require.NoError(t, log.Save(ctx, event))

	count, err := log.CountForInstance(ctx, "inst-2")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	found, err := instances.FindByIDs(ctx, []string{"inst-2"})
	require.NoError(t, err)
	require.Equal(t, int64(1), found[0].DriftEventCount)
}
