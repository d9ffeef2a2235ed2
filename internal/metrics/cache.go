package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics instruments the Cache Tier across all providers.
type CacheMetrics struct {
	HitsTotal           *prometheus.CounterVec
	MissesTotal         *prometheus.CounterVec
	LoaderInvokedTotal  *prometheus.CounterVec
	LoaderErrorsTotal   *prometheus.CounterVec
	BreakerStateGauge   *prometheus.GaugeVec
	BreakerTripsTotal   *prometheus.CounterVec
	FallbackReadsTotal  *prometheus.CounterVec
	InvalidationsTotal  *prometheus.CounterVec
	ProviderSwitchTotal prometheus.Counter
}

func newCacheMetrics(namespace string) *CacheMetrics {
	return &CacheMetrics{
		HitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Cache hits by provider tier and cache name.",
		}, []string{"tier", "cache_name"}),
		MissesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Cache misses by provider tier and cache name.",
		}, []string{"tier", "cache_name"}),
		LoaderInvokedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "loader_invoked_total",
			Help: "Loader invocations on a full cache miss, by cache name.",
		}, []string{"cache_name"}),
		LoaderErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "loader_errors_total",
			Help: "Loader errors, by cache name.",
		}, []string{"cache_name"}),
		BreakerStateGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "breaker_state",
			Help: "Distributed-tier circuit breaker state (0=closed,1=half-open,2=open).",
		}, []string{"cache_name"}),
		BreakerTripsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "breaker_trips_total",
			Help: "Distributed-tier circuit breaker trips, by cache name.",
		}, []string{"cache_name"}),
		FallbackReadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "fallback_reads_total",
			Help: "Reads downgraded from distributed to local tier while the breaker is open.",
		}, []string{"cache_name"}),
		InvalidationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "invalidations_total",
			Help: "L1 entries discarded due to an invalidation-channel message.",
		}, []string{"cache_name", "origin"}),
		ProviderSwitchTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "provider_switch_total",
			Help: "DelegatingCacheManager.SwitchProvider invocations.",
		}),
	}
}
