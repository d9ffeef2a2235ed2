package processing

import (
	"time"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// StepResult is everything one heartbeat's drift-state transition
// produces: the mutated drift view on the instance, an optional new
// DriftEvent (only on the Unknown/Healthy → DRIFT transition — events
// are transition-only, never emitted for steady-state drift), and
// whether this heartbeat should trigger a refresh dispatch.
type StepResult struct {
	Event          *domain.DriftEvent
	TriggerRefresh bool
	ClearBackoff   bool
}

// ApplyHeartbeat runs one heartbeat through the drift state machine,
// mutating inst's drift view (Status/HasDrift/DriftDetectedAt/
// ExpectedHash/ConfigHash/LastAppliedHash) in place. backoff is mutated
// in place on the persistent-drift branch; the caller is responsible
// for clearing it from the Backoff Table when StepResult.ClearBackoff
// is true, and for writing it back otherwise.
//
// inst must already carry the identity/heartbeat-view fields
// (InstanceID, ServiceID, TeamID, Host, Port, Environment, Version,
// Metadata) the caller merged from the payload and the resolved
// ApplicationService; this function only ever touches the drift view.
func ApplyHeartbeat(inst *domain.ServiceInstance, serviceName string, appliedHash, expectedHash *string, backoff *domain.BackoffEntry, now time.Time) StepResult {
	wasDrifting := inst.HasDrift
	inst.LastAppliedHash = appliedHash

	if expectedHash == nil || appliedHash == nil {
		inst.Status = domain.StatusUnknown
		inst.HasDrift = false
		inst.DriftDetectedAt = nil
		inst.ExpectedHash = nil
		inst.ConfigHash = nil
		return StepResult{ClearBackoff: true}
	}

	matches := *expectedHash == *appliedHash
	inst.ExpectedHash = expectedHash
	inst.ConfigHash = expectedHash

	switch {
	case !matches && !wasDrifting:
		// New drift (A).
		inst.HasDrift = true
		inst.DriftDetectedAt = &now
		inst.Status = domain.StatusDrift
		*backoff = domain.BackoffEntry{RetryCount: 1, Pow: 0}
		event := domain.NewDriftEvent(serviceName, inst.InstanceID, inst.ServiceID, inst.TeamID, inst.Environment, *expectedHash, *appliedHash, now)
		return StepResult{Event: &event, TriggerRefresh: true}

	case matches && wasDrifting:
		// Drift resolved (B).
		inst.HasDrift = false
		inst.DriftDetectedAt = nil
		inst.Status = domain.StatusHealthy
		return StepResult{ClearBackoff: true}

	case matches && !wasDrifting:
		// Steady healthy (C).
		inst.Status = domain.StatusHealthy
		return StepResult{ClearBackoff: true}

	default:
		// Persistent drift (D): wasDrifting && !matches.
		refresh := backoff.Advance()
		return StepResult{TriggerRefresh: refresh}
	}
}
