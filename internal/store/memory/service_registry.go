package memory

import (
	"context"
	"sync"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// ServiceRegistry is an in-memory store.ServiceRegistry fake for unit
// tests, keyed by DisplayName the same way the Postgres implementation
// is keyed by its unique constraint.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]domain.ApplicationService
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[string]domain.ApplicationService)}
}

// FindByDisplayNames bulk-reads every known service among displayNames;
// names with no stored row are absent from the result.
func (r *ServiceRegistry) FindByDisplayNames(_ context.Context, displayNames []string) (map[string]domain.ApplicationService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.ApplicationService)
	for _, name := range displayNames {
		if svc, ok := r.services[name]; ok {
			out[name] = copyService(svc)
		}
	}
	return out, nil
}

func (r *ServiceRegistry) Save(_ context.Context, service domain.ApplicationService) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services[service.DisplayName] = copyService(service)
	return nil
}

func copyService(svc domain.ApplicationService) domain.ApplicationService {
	cp := svc
	if svc.Environments != nil {
		cp.Environments = append([]string(nil), svc.Environments...)
	}
	return cp
}
