package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

func strp(s string) *string { return &s }

func TestApplyHeartbeat_NewDrift(t *testing.T) {
	inst := &domain.ServiceInstance{InstanceID: "i1", ServiceID: "svc-A"}
	backoff := &domain.BackoffEntry{}
	now := time.Now()

	result := ApplyHeartbeat(inst, "svc-A", strp("bb"), strp("aa"), backoff, now)

	require.NotNil(t, result.Event)
	assert.True(t, result.TriggerRefresh)
	assert.False(t, result.ClearBackoff)
	assert.Equal(t, domain.StatusDrift, inst.Status)
	assert.True(t, inst.HasDrift)
	assert.Equal(t, "aa", *inst.ExpectedHash)
	assert.Equal(t, "aa", *inst.ConfigHash)
	assert.Equal(t, "bb", *inst.LastAppliedHash)
	assert.Equal(t, domain.BackoffEntry{RetryCount: 1, Pow: 0}, *backoff)
}

func TestApplyHeartbeat_DriftResolved(t *testing.T) {
	now := time.Now()
	detected := now.Add(-time.Minute)
	inst := &domain.ServiceInstance{
		InstanceID: "i1", ServiceID: "svc-A",
		HasDrift: true, DriftDetectedAt: &detected, Status: domain.StatusDrift,
	}
	backoff := &domain.BackoffEntry{RetryCount: 1, Pow: 0}

	result := ApplyHeartbeat(inst, "svc-A", strp("aa"), strp("aa"), backoff, now)

	assert.Nil(t, result.Event)
	assert.False(t, result.TriggerRefresh)
	assert.True(t, result.ClearBackoff)
	assert.Equal(t, domain.StatusHealthy, inst.Status)
	assert.False(t, inst.HasDrift)
	assert.Nil(t, inst.DriftDetectedAt)
	assert.Equal(t, "aa", *inst.ExpectedHash)
}

func TestApplyHeartbeat_SteadyHealthy(t *testing.T) {
	inst := &domain.ServiceInstance{InstanceID: "i1", ServiceID: "svc-A", Status: domain.StatusUnknown}
	backoff := &domain.BackoffEntry{}
	now := time.Now()

	result := ApplyHeartbeat(inst, "svc-A", strp("aa"), strp("aa"), backoff, now)

	assert.Nil(t, result.Event)
	assert.False(t, result.TriggerRefresh)
	assert.True(t, result.ClearBackoff)
	assert.Equal(t, domain.StatusHealthy, inst.Status)
	assert.False(t, inst.HasDrift)
}

func TestApplyHeartbeat_UnknownClearsHashesAndBackoff(t *testing.T) {
	inst := &domain.ServiceInstance{
		InstanceID: "i1", ServiceID: "svc-A",
		HasDrift: true, ExpectedHash: strp("aa"), ConfigHash: strp("aa"),
	}
	backoff := &domain.BackoffEntry{RetryCount: 3, Pow: 1}
	now := time.Now()

	result := ApplyHeartbeat(inst, "svc-A", strp("bb"), nil, backoff, now)

	assert.Nil(t, result.Event)
	assert.False(t, result.TriggerRefresh)
	assert.True(t, result.ClearBackoff)
	assert.Equal(t, domain.StatusUnknown, inst.Status)
	assert.False(t, inst.HasDrift)
	assert.Nil(t, inst.ExpectedHash)
	assert.Nil(t, inst.ConfigHash)
	assert.NoError(t, inst.CheckInvariants())
}

// TestApplyHeartbeat_PersistentDriftBackoffSchedule mirrors spec
// scenario S3: repeating S1's drifting heartbeat 20 times fires
// refreshes at heartbeat indices 1, 2, 4, 8, 16, with exactly one
// DriftEvent emitted (on the first, transition-only heartbeat).
func TestApplyHeartbeat_PersistentDriftBackoffSchedule(t *testing.T) {
	inst := &domain.ServiceInstance{InstanceID: "i1", ServiceID: "svc-A"}
	backoff := &domain.BackoffEntry{}
	now := time.Now()

	var refreshIndices []int
	events := 0

	for i := 1; i <= 20; i++ {
		result := ApplyHeartbeat(inst, "svc-A", strp("bb"), strp("aa"), backoff, now)
		if result.Event != nil {
			events++
		}
		if result.TriggerRefresh {
			refreshIndices = append(refreshIndices, i)
		}
	}

	assert.Equal(t, 1, events)
	assert.Equal(t, []int{1, 2, 4, 8, 16}, refreshIndices)
}
