package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestionMetrics instruments the Ingestion Gateway.
type IngestionMetrics struct {
	ReceivedTotal   prometheus.Counter
	FailedTotal     *prometheus.CounterVec
	LatencySeconds  prometheus.Histogram
}

func newIngestionMetrics(namespace string) *IngestionMetrics {
	return &IngestionMetrics{
		ReceivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "received_total",
			Help:      "Heartbeats accepted by the Ingestion Gateway.",
		}),
		FailedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "failed_total",
			Help:      "Heartbeats rejected or failed to submit to the bus, by reason.",
		}, []string{"reason"}),
		LatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "latency_seconds",
			Help:      "Wall time from Enqueue call entry to producer acceptance.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
