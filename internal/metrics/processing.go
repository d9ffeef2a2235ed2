package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProcessingMetrics instruments the Batch Processor and drift state
// machine.
type ProcessingMetrics struct {
	BatchesTotal        prometheus.Counter
	BatchSize           prometheus.Histogram
	BatchDurationSecs   prometheus.Histogram
	HeartbeatsTotal     *prometheus.CounterVec
	DriftTransitionsTotal *prometheus.CounterVec
	OrphansCreatedTotal prometheus.Counter
	RefreshesTriggered  *prometheus.CounterVec
	CommitFailuresTotal prometheus.Counter
}

func newProcessingMetrics(namespace string) *ProcessingMetrics {
	return &ProcessingMetrics{
		BatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "batch", Name: "cycles_total",
			Help: "Unit-of-work cycles completed by the Batch Processor.",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "batch", Name: "size_heartbeats",
			Help:    "Number of heartbeats per batch cycle.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		BatchDurationSecs: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "batch", Name: "duration_seconds",
			Help:    "Wall time of one unit-of-work cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		HeartbeatsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "batch", Name: "heartbeats_total",
			Help: "Heartbeats processed, by outcome (healthy, drift, unknown, error).",
		}, []string{"outcome"}),
		DriftTransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "batch", Name: "drift_transitions_total",
			Help: "Transitions into or out of DRIFT, by direction.",
		}, []string{"direction"}),
		OrphansCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "batch", Name: "orphan_services_created_total",
			Help: "Orphan ApplicationService records synthesized for unknown service names.",
		}),
		RefreshesTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "batch", Name: "refresh_triggered_total",
			Help: "Refresh-dispatch attempts triggered by the state machine, by advisory destination.",
		}, []string{"destination"}),
		CommitFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "batch", Name: "commit_failures_total",
			Help: "Batch-wide commit failures that leave the bus offset unacknowledged.",
		}),
	}
}
