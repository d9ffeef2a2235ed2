package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics instruments the /health aggregator.
type HealthMetrics struct {
	ChecksTotal     *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	ComponentStatus *prometheus.GaugeVec
	OverallStatus   prometheus.Gauge
}

func newHealthMetrics(namespace string) *HealthMetrics {
	return &HealthMetrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "health", Name: "checks_total",
			Help: "Component health checks performed, by component and outcome.",
		}, []string{"component", "status"}),
		CheckDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "health", Name: "check_duration_seconds",
			Help:    "Duration of an individual component health check.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}, []string{"component"}),
		ComponentStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "health", Name: "component_status",
			Help: "Current component status (1=healthy, 0.5=degraded, 0=unhealthy).",
		}, []string{"component"}),
		OverallStatus: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "health", Name: "overall_status",
			Help: "Current aggregate status (1=healthy, 0.5=degraded, 0=unhealthy).",
		}),
	}
}
