// Package ingestion implements the Ingestion Gateway: the entry point
// that validates an inbound heartbeat and hands it to the Heartbeat
// Bus, decoupling the sender from the Batch Processor's own pace.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vitaliisemenov/driftctl/internal/bus"
	"github.com/vitaliisemenov/driftctl/internal/domain"
	"github.com/vitaliisemenov/driftctl/internal/metrics"
	"github.com/vitaliisemenov/driftctl/internal/resilience"
)

var validate = validator.New()

// Config wires a Gateway's dependencies.
type Config struct {
	Producer bus.Producer
	Chain    *resilience.Chain
	Metrics  *metrics.IngestionMetrics
	Logger   *slog.Logger
}

// Gateway validates and submits heartbeats to the bus. It never blocks
// on broker acknowledgement: Enqueue returns once the resilience-wrapped
// producer accepts the message, per SPEC_FULL §5.1.
type Gateway struct {
	producer bus.Producer
	chain    *resilience.Chain
	metrics  *metrics.IngestionMetrics
	logger   *slog.Logger
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultRegistry().Ingestion()
	}
	if cfg.Chain == nil {
		cfg.Chain = resilience.NewChain("ingestion", resilience.ChainConfig{})
	}
	return &Gateway{
		producer: cfg.Producer,
		chain:    cfg.Chain,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "ingestion.gateway"),
	}
}

// Enqueue validates payload and submits it to the Heartbeat Bus,
// partitioned on ServiceName so ordering is preserved per service
// downstream. It fails with domain.ErrInvalidInput if payload doesn't
// carry its required fields, and with domain.ErrBusUnavailable if the
// producer still refuses after the resilience chain is exhausted.
func (g *Gateway) Enqueue(ctx context.Context, payload domain.HeartbeatPayload) error {
	start := time.Now()
	defer func() { g.metrics.LatencySeconds.Observe(time.Since(start).Seconds()) }()

	if payload.SentAt.IsZero() {
		payload.SentAt = time.Now().UTC()
	}

	if err := validate.Struct(payload); err != nil {
		g.metrics.FailedTotal.WithLabelValues("invalid_input").Inc()
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	value, err := json.Marshal(payload)
	if err != nil {
		g.metrics.FailedTotal.WithLabelValues("serialization").Inc()
		return fmt.Errorf("%w: %v", domain.ErrSerializationFailure, err)
	}

	msg := bus.Message{Key: payload.PartitionKey(), Value: value}

	_, err = resilience.Execute(ctx, g.chain, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.producer.Send(ctx, msg)
	})
	if err != nil {
		g.logger.Error("heartbeat rejected by bus after resilience chain exhausted",
			"service", payload.ServiceName, "instance_id", payload.InstanceID, "error", err)
		g.metrics.FailedTotal.WithLabelValues("bus_unavailable").Inc()
		return fmt.Errorf("%w: %v", domain.ErrBusUnavailable, err)
	}

	g.metrics.ReceivedTotal.Inc()
	return nil
}
