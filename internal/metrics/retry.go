package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics tracks retry-decorator metrics shared by every
// resilience chain (confighash client, refresh dispatcher, bus
// producer, ...).
type RetryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	DurationSeconds    *prometheus.HistogramVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

// NewRetryMetrics registers the retry metric family under namespace.
func NewRetryMetrics(namespace string) *RetryMetrics {
	return &RetryMetrics{
		AttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience_retry",
				Name:      "attempts_total",
				Help:      "Total retry attempts by operation, outcome, and error type.",
			},
			[]string{"operation", "outcome", "error_type"},
		),
		DurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "resilience_retry",
				Name:      "duration_seconds",
				Help:      "Duration of retried operations from start to completion.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "outcome"},
		),
		BackoffSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "resilience_retry",
				Name:      "backoff_seconds",
				Help:      "Backoff delay observed before a retry attempt.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		FinalAttemptsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "resilience_retry",
				Name:      "final_attempts_total",
				Help:      "Number of attempts made until final success or failure.",
				Buckets:   []float64{1, 2, 3, 4, 5, 10, 20},
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (m *RetryMetrics) RecordAttempt(operation, outcome, errorType string, duration float64) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
	m.DurationSeconds.WithLabelValues(operation, outcome).Observe(duration)
}

func (m *RetryMetrics) RecordBackoff(operation string, delaySeconds float64) {
	if m == nil {
		return
	}
	m.BackoffSeconds.WithLabelValues(operation).Observe(delaySeconds)
}

func (m *RetryMetrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}

func (m *RetryMetrics) Reset() {
	if m == nil {
		return
	}
	m.AttemptsTotal.Reset()
	m.DurationSeconds.Reset()
	m.BackoffSeconds.Reset()
	m.FinalAttemptsTotal.Reset()
}
