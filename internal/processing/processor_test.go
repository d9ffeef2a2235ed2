package processing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/driftctl/internal/backoff"
	"github.com/vitaliisemenov/driftctl/internal/bus"
	"github.com/vitaliisemenov/driftctl/internal/cache"
	"github.com/vitaliisemenov/driftctl/internal/confighash"
	"github.com/vitaliisemenov/driftctl/internal/domain"
	"github.com/vitaliisemenov/driftctl/internal/refresh"
	"github.com/vitaliisemenov/driftctl/internal/store/memory"
)

// testHarness wires a Processor against in-memory stores, a Noop cache,
// and a Config Hash Client pinned to a static mock hash, so each test
// controls drift/no-drift deterministically without a real config
// source or database.
type testHarness struct {
	instances *memory.InstanceStore
	services  *memory.ServiceRegistry
	driftLog  *memory.DriftLog
	processor *Processor
}

func newHarness(t *testing.T, expectedHash string) *testHarness {
	t.Helper()

	refreshServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(refreshServer.Close)

	instances := memory.NewInstanceStore()
	services := memory.NewServiceRegistry()
	driftLog := memory.NewDriftLog()

	hashClient := confighash.NewClient(confighash.ClientConfig{
		MockStrategy: confighash.StaticMockStrategy{Hash_: expectedHash},
		DirectURLs:   map[string]string{"production": refreshServer.URL},
	}, nil)

	dispatcher := refresh.NewDispatcher(refreshServer.Client(), nil, nil)

	processor := NewProcessor(Config{
		Instances:  instances,
		Services:   services,
		DriftLog:   driftLog,
		Cache:      cache.NewDelegatingCacheManager(cache.NewNoopProvider()),
		ConfigHash: hashClient,
		Refresh:    dispatcher,
		Backoff:    backoff.New(),
	})

	return &testHarness{
		instances: instances,
		services:  services,
		driftLog:  driftLog,
		processor: processor,
	}
}

func heartbeatMessage(t *testing.T, p domain.HeartbeatPayload) bus.Message {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return bus.Message{Key: p.PartitionKey(), Value: raw}
}

func TestProcessor_NewDriftRaisesEventAndUpsertsInstance(t *testing.T) {
	h := newHarness(t, "expected-hash")
	ctx := context.Background()

	applied := "applied-hash"
	msg := heartbeatMessage(t, domain.HeartbeatPayload{
		InstanceID:  "inst-1",
		ServiceName: "checkout",
		Environment: "production",
		Host:        "10.0.0.5",
		Port:        8080,
		Version:     "2.0.0",
		ConfigHash:  &applied,
		SentAt:      time.Now(),
	})

	require.NoError(t, h.processor.HandleBatch(ctx, []bus.Message{msg}))

	stored := h.instances.All()
	require.Len(t, stored, 1)
	assert.Equal(t, domain.StatusDrift, stored[0].Status)
	assert.True(t, stored[0].HasDrift)
	assert.Equal(t, "expected-hash", *stored[0].ExpectedHash)

	events := h.driftLog.All()
	require.Len(t, events, 1)
	assert.Equal(t, "inst-1", events[0].InstanceID)

	svcs, err := h.services.FindByDisplayNames(ctx, []string{"checkout"})
	require.NoError(t, err)
	require.Contains(t, svcs, "checkout")
	assert.True(t, svcs["checkout"].IsOrphan())
	assert.Contains(t, svcs["checkout"].Environments, "production")
}

func TestProcessor_DriftResolvedClearsEventAndBackoff(t *testing.T) {
	h := newHarness(t, "same-hash")
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, h.services.Save(ctx, domain.ApplicationService{
		ID: "svc-1", DisplayName: "checkout", OwnerTeamID: "team-a",
		Environments: []string{"production"}, Lifecycle: domain.LifecycleActive,
		CreatedAt: now, UpdatedAt: now, CreatedBy: "test",
	}))

	detected := now.Add(-time.Minute)
	expected := "same-hash"
	_, _, err := h.instances.BulkUpsert(ctx, []domain.ServiceInstance{{
		InstanceID: "inst-1", ServiceID: "svc-1", TeamID: "team-a",
		Environment: "production", Status: domain.StatusDrift, HasDrift: true,
		DriftDetectedAt: &detected, ExpectedHash: &expected, ConfigHash: &expected,
		CreatedAt: now, UpdatedAt: now, LastSeenAt: now,
	}})
	require.NoError(t, err)

	msg := heartbeatMessage(t, domain.HeartbeatPayload{
		InstanceID:  "inst-1",
		ServiceName: "checkout",
		Environment: "production",
		ConfigHash:  &expected,
		SentAt:      time.Now(),
	})

	require.NoError(t, h.processor.HandleBatch(ctx, []bus.Message{msg}))

	stored := h.instances.All()
	require.Len(t, stored, 1)
	assert.Equal(t, domain.StatusHealthy, stored[0].Status)
	assert.False(t, stored[0].HasDrift)
	assert.Nil(t, stored[0].DriftDetectedAt)
	assert.Empty(t, h.driftLog.All())
}

func TestProcessor_UnparsableMessageIsSkippedNotFatal(t *testing.T) {
	h := newHarness(t, "expected-hash")
	ctx := context.Background()

	err := h.processor.HandleBatch(ctx, []bus.Message{{Key: "x", Value: []byte("not-json")}})
	require.NoError(t, err)
	assert.Empty(t, h.instances.All())
}

func TestProcessor_UnknownHeartbeatClearsDriftViewToUnknown(t *testing.T) {
	h := newHarness(t, "expected-hash")
	ctx := context.Background()

	msg := heartbeatMessage(t, domain.HeartbeatPayload{
		InstanceID:  "inst-2",
		ServiceName: "billing",
		Environment: "production",
		ConfigHash:  nil,
		SentAt:      time.Now(),
	})

	require.NoError(t, h.processor.HandleBatch(ctx, []bus.Message{msg}))

	stored := h.instances.All()
	require.Len(t, stored, 1)
	assert.Equal(t, domain.StatusUnknown, stored[0].Status)
	assert.NoError(t, stored[0].CheckInvariants())
}
