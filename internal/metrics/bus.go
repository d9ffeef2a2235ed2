package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusMetrics instruments the Heartbeat Bus producer and consumer group.
type BusMetrics struct {
	ProducedTotal    *prometheus.CounterVec
	ProducerErrors   prometheus.Counter
	ConsumedTotal    *prometheus.CounterVec
	ConsumerLagGauge *prometheus.GaugeVec
}

func newBusMetrics(namespace string) *BusMetrics {
	return &BusMetrics{
		ProducedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "produced_total",
			Help: "Producer Send calls, by outcome (accepted, cancelled).",
		}, []string{"outcome"}),
		ProducerErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "producer_errors_total",
			Help: "Asynchronous producer errors observed on the Errors() channel.",
		}),
		ConsumedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "consumed_total",
			Help: "Messages delivered to the consumer group handler.",
		}, []string{"topic"}),
		ConsumerLagGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "bus", Name: "consumer_lag",
			Help: "Approximate consumer lag per partition.",
		}, []string{"partition"}),
	}
}
