package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DatabaseMetrics instruments the Postgres connection pool shared by
// the Service Registry, Instance Store, and Drift Log.
type DatabaseMetrics struct {
	ConnectionsActive             prometheus.Gauge
	ConnectionsIdle                prometheus.Gauge
	ConnectionWaitDurationSeconds  prometheus.Histogram
	QueryDurationSeconds           *prometheus.HistogramVec
	QueriesTotal                   *prometheus.CounterVec
	ErrorsTotal                    *prometheus.CounterVec
}

func newDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "database", Name: "connections_active",
			Help: "Postgres pool connections currently checked out.",
		}),
		ConnectionsIdle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "database", Name: "connections_idle",
			Help: "Postgres pool connections currently idle.",
		}),
		ConnectionWaitDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "database", Name: "connection_wait_duration_seconds",
			Help:    "Time spent waiting to acquire a pool connection.",
			Buckets: prometheus.DefBuckets,
		}),
		QueryDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "database", Name: "query_duration_seconds",
			Help:    "Query execution time, by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "database", Name: "queries_total",
			Help: "Queries executed, by operation and outcome.",
		}, []string{"operation", "status"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "database", Name: "errors_total",
			Help: "Pool errors, by kind (connection, query, timeout).",
		}, []string{"kind"}),
	}
}
