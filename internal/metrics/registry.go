// Package metrics provides centralized Prometheus metrics for the
// drift control plane.
//
// Metrics follow the naming convention:
// driftctl_<subsystem>_<metric_name>
//
// Example:
//
//	registry := metrics.DefaultRegistry()
//	registry.Ingestion().ReceivedTotal.Inc()
//	registry.Cache().HitsTotal.WithLabelValues("local", "config-hash").Inc()
package metrics

import "sync"

// MetricsRegistry is the central registry for all Prometheus metrics,
// organized by component. Category managers are lazily initialized so
// a component that never runs (e.g. the bus in a test binary) never
// registers its collectors.
type MetricsRegistry struct {
	namespace string

	ingestion  *IngestionMetrics
	processing *ProcessingMetrics
	cache      *CacheMetrics
	confighash *ConfigHashMetrics
	refresh    *RefreshMetrics
	bus        *BusMetrics
	retry      *RetryMetrics
	health     *HealthMetrics
	database   *DatabaseMetrics

	ingestionOnce  sync.Once
	processingOnce sync.Once
	cacheOnce      sync.Once
	confighashOnce sync.Once
	refreshOnce    sync.Once
	busOnce        sync.Once
	retryOnce      sync.Once
	healthOnce     sync.Once
	databaseOnce   sync.Once
}

var (
	defaultRegistry     *MetricsRegistry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the global singleton MetricsRegistry.
func DefaultRegistry() *MetricsRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewMetricsRegistry("driftctl")
	})
	return defaultRegistry
}

// NewMetricsRegistry creates a registry under the given namespace. Most
// callers should use DefaultRegistry(); a distinct namespace is only
// useful for running two registries in the same process (tests).
func NewMetricsRegistry(namespace string) *MetricsRegistry {
	if namespace == "" {
		namespace = "driftctl"
	}
	return &MetricsRegistry{namespace: namespace}
}

func (r *MetricsRegistry) Ingestion() *IngestionMetrics {
	r.ingestionOnce.Do(func() { r.ingestion = newIngestionMetrics(r.namespace) })
	return r.ingestion
}

func (r *MetricsRegistry) Processing() *ProcessingMetrics {
	r.processingOnce.Do(func() { r.processing = newProcessingMetrics(r.namespace) })
	return r.processing
}

func (r *MetricsRegistry) Cache() *CacheMetrics {
	r.cacheOnce.Do(func() { r.cache = newCacheMetrics(r.namespace) })
	return r.cache
}

func (r *MetricsRegistry) ConfigHash() *ConfigHashMetrics {
	r.confighashOnce.Do(func() { r.confighash = newConfigHashMetrics(r.namespace) })
	return r.confighash
}

func (r *MetricsRegistry) Refresh() *RefreshMetrics {
	r.refreshOnce.Do(func() { r.refresh = newRefreshMetrics(r.namespace) })
	return r.refresh
}

func (r *MetricsRegistry) Bus() *BusMetrics {
	r.busOnce.Do(func() { r.bus = newBusMetrics(r.namespace) })
	return r.bus
}

func (r *MetricsRegistry) Retry() *RetryMetrics {
	r.retryOnce.Do(func() { r.retry = NewRetryMetrics(r.namespace) })
	return r.retry
}

func (r *MetricsRegistry) Health() *HealthMetrics {
	r.healthOnce.Do(func() { r.health = newHealthMetrics(r.namespace) })
	return r.health
}

func (r *MetricsRegistry) Database() *DatabaseMetrics {
	r.databaseOnce.Do(func() { r.database = newDatabaseMetrics(r.namespace) })
	return r.database
}
