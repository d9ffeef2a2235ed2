package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigHashMetrics instruments the Config Hash Client.
type ConfigHashMetrics struct {
	RequestsTotal       *prometheus.CounterVec
	FallbackServedTotal *prometheus.CounterVec
	MockModeTotal       *prometheus.CounterVec
	DiscoveryErrorsTotal prometheus.Counter
}

func newConfigHashMetrics(namespace string) *ConfigHashMetrics {
	return &ConfigHashMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "confighash", Name: "requests_total",
			Help: "GetExpectedHash calls by outcome (hit, miss, error).",
		}, []string{"outcome"}),
		FallbackServedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "confighash", Name: "fallback_served_total",
			Help: "Requests served from the cached-fallback payload after chain exhaustion.",
		}, []string{"service"}),
		MockModeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "confighash", Name: "mock_mode_total",
			Help: "Hashes synthesized by mock-mode strategy instead of fetched from the config source.",
		}, []string{"strategy"}),
		DiscoveryErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "confighash", Name: "discovery_errors_total",
			Help: "Kubernetes service-discovery lookup errors.",
		}),
	}
}
