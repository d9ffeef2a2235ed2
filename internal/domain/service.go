package domain

import "time"

// ServiceLifecycle is the lifecycle stage of an ApplicationService.
type ServiceLifecycle string

const (
	LifecycleActive     ServiceLifecycle = "ACTIVE"
	LifecycleDeprecated ServiceLifecycle = "DEPRECATED"
	LifecycleRetired    ServiceLifecycle = "RETIRED"
)

// ApplicationService is the registry entry for a logical service,
// identified by its unique DisplayName. It is owned exclusively by the
// Service Registry. One is synthesized as an orphan (OwnerTeamID="")
// the first time a heartbeat references a service name the registry
// has never seen.
type ApplicationService struct {
	ID           string
	DisplayName  string
	OwnerTeamID  string // empty means orphan
	Environments []string
	Lifecycle    ServiceLifecycle
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string

	// OrphanedAt is set when this service was auto-created as an
	// orphan, and cleared once a human assigns OwnerTeamID. It lets
	// operators triage auto-created services by age.
	OrphanedAt *time.Time
}

// IsOrphan reports whether the service has no assigned owning team.
func (s ApplicationService) IsOrphan() bool {
	return s.OwnerTeamID == ""
}

// NewOrphan synthesizes the orphan ApplicationService created on demand
// when a heartbeat's serviceName is unknown to the registry.
func NewOrphan(displayName string, now time.Time) ApplicationService {
	return ApplicationService{
		DisplayName:  displayName,
		Environments: []string{"dev", "staging", "prod"},
		Lifecycle:    LifecycleActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    "heartbeat-batch",
		OrphanedAt:   &now,
	}
}

// MergeEnvironment adds env to the service's environment set if
// missing, keeping it deduped and sorted. Returns true if the set
// changed.
func (s *ApplicationService) MergeEnvironment(env string) bool {
	if env == "" {
		return false
	}
	for _, e := range s.Environments {
		if e == env {
			return false
		}
	}
	s.Environments = insertSorted(s.Environments, env)
	return true
}

func insertSorted(envs []string, env string) []string {
	out := make([]string, 0, len(envs)+1)
	inserted := false
	for _, e := range envs {
		if !inserted && env < e {
			out = append(out, env)
			inserted = true
		}
		out = append(out, e)
	}
	if !inserted {
		out = append(out, env)
	}
	return out
}
