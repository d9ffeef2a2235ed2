package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

func TestInstanceStore_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInstanceStore()
	now := time.Now()

	inst := domain.ServiceInstance{
		InstanceID: "inst-1",
		ServiceID:  "svc-1",
		Metadata:   map[string]string{"region": "eu-west-1"},
		LastSeenAt: now,
	}
	inserted, modified, err := store.BulkUpsert(ctx, []domain.ServiceInstance{inst})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, modified)

	found, err := store.FindByIDs(ctx, []string{"inst-1", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "svc-1", found[0].ServiceID)

	found[0].Metadata["region"] = "mutated"
	again, err := store.FindByIDs(ctx, []string{"inst-1"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", again[0].Metadata["region"])

	inserted, modified, err = store.BulkUpsert(ctx, []domain.ServiceInstance{inst})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, modified)
}

func TestInstanceStore_FindByIDsSkipsUnknown(t *testing.T) {
	store := NewInstanceStore()
	found, err := store.FindByIDs(context.Background(), []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestServiceRegistry_SaveAndFindByDisplayNames(t *testing.T) {
	ctx := context.Background()
	registry := NewServiceRegistry()
	now := time.Now()

	svc := domain.NewOrphan("mystery-service", now)
	require.NoError(t, registry.Save(ctx, svc))

	got, err := registry.FindByDisplayNames(ctx, []string{"mystery-service", "unknown"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got["mystery-service"].IsOrphan())
}

func TestDriftLog_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	log := NewDriftLog()
	now := time.Now()

	event := domain.NewDriftEvent("svc-1", "inst-1", "svc-1", "team-a", "production", "hash-a", "hash-b", now)

	require.NoError(t, log.Save(ctx, event))
	require.NoError(t, log.Save(ctx, event))

	count, err := log.CountForInstance(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Len(t, log.All(), 1)
}
