package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RefreshMetrics instruments the Refresh Dispatcher.
type RefreshMetrics struct {
	TriggeredTotal *prometheus.CounterVec
	ErrorsTotal    prometheus.Counter
}

func newRefreshMetrics(namespace string) *RefreshMetrics {
	return &RefreshMetrics{
		TriggeredTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "triggered_total",
			Help: "Refresh dispatches sent, labeled by the advisory destination argument.",
		}, []string{"destination"}),
		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "refresh", Name: "errors_total",
			Help: "Refresh dispatch errors translated to ErrExternalUnavailable.",
		}),
	}
}
