package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/vitaliisemenov/driftctl/internal/metrics"
)

// SaramaBus is the production Heartbeat Bus backed by Kafka. Producer
// and ConsumerGroup share one topic; partitioning is by Message.Key
// (service name) via sarama's default hash partitioner, so all
// heartbeats for a service land on the same partition and are
// processed in order relative to each other.
type SaramaBus struct {
	topic     string
	brokers   []string
	saramaCfg *sarama.Config
	producer  sarama.AsyncProducer
	client    sarama.ConsumerGroup
	logger    *slog.Logger
	metrics   *metrics.BusMetrics
}

// SaramaConfig names the brokers, topic and consumer group. BatchSize
// and BatchWindow are accepted but not applied: ConsumeClaim always
// closes a batch at 100 messages or after 1 second.
type SaramaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	BatchSize   int
	BatchWindow time.Duration
}

// NewSaramaBus dials the brokers and opens both a producer and a
// consumer group for topic/groupID. m may be nil to disable
// instrumentation.
func NewSaramaBus(cfg SaramaConfig, m *metrics.BusMetrics, logger *slog.Logger) (*SaramaBus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		producer.Close()
		return nil, err
	}

	b := &SaramaBus{
		topic:     cfg.Topic,
		brokers:   cfg.Brokers,
		saramaCfg: saramaCfg,
		producer:  producer,
		client:    group,
		logger:    logger.With("component", "bus.sarama", "topic", cfg.Topic),
		metrics:   m,
	}

	go b.logProducerErrors()

	return b, nil
}

func (b *SaramaBus) logProducerErrors() {
	for err := range b.producer.Errors() {
		b.logger.Error("producer send failed", "error", err)
		if b.metrics != nil {
			b.metrics.ProducerErrors.Inc()
		}
	}
}

func (b *SaramaBus) Send(ctx context.Context, msg Message) error {
	select {
	case b.producer.Input() <- &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(msg.Key),
		Value: sarama.ByteEncoder(msg.Value),
	}:
		if b.metrics != nil {
			b.metrics.ProducedTotal.WithLabelValues("accepted").Inc()
		}
		return nil
	case <-ctx.Done():
		if b.metrics != nil {
			b.metrics.ProducedTotal.WithLabelValues("cancelled").Inc()
		}
		return ctx.Err()
	}
}

// Run consumes the topic as a consumer group, accumulating messages
// into batches of at most 100 messages or 1 second before invoking
// handler, then marking the batch's messages as consumed. A handler
// error ends the session without marking the failed batch; Run then
// consumes again from the last committed offset.
func (b *SaramaBus) Run(ctx context.Context, handler BatchHandler) error {
	h := &groupHandler{bus: b, handler: handler}
	for {
		if err := b.client.Consume(ctx, []string{b.topic}, h); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Ping dials the broker list and asks for cluster metadata, the
// cheapest round-trip sarama exposes for verifying the cluster is
// reachable without touching the topic's offsets.
func (b *SaramaBus) Ping(ctx context.Context) error {
	client, err := sarama.NewClient(b.brokers, b.saramaCfg)
	if err != nil {
		return err
	}
	defer client.Close()
	_, err = client.Controller()
	return err
}

func (b *SaramaBus) Close() error {
	if err := b.producer.Close(); err != nil {
		return err
	}
	return b.client.Close()
}

type groupHandler struct {
	bus     *SaramaBus
	handler BatchHandler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	const defaultBatchSize = 100
	const defaultBatchWindow = time.Second

	batch := make([]Message, 0, defaultBatchSize)
	var claimed []*sarama.ConsumerMessage
	ticker := time.NewTicker(defaultBatchWindow)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := h.handler(session.Context(), batch); err != nil {
			h.bus.logger.Error("batch handler failed, batch will be redelivered", "error", err, "size", len(batch))
			return err
		}
		for _, m := range claimed {
			session.MarkMessage(m, "")
		}
		if h.bus.metrics != nil {
			h.bus.metrics.ConsumedTotal.WithLabelValues(h.bus.topic).Add(float64(len(batch)))
		}
		batch = batch[:0]
		claimed = claimed[:0]
		return nil
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return flush()
			}
			batch = append(batch, Message{Key: string(msg.Key), Value: msg.Value})
			claimed = append(claimed, msg)
			if len(batch) >= defaultBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case <-session.Context().Done():
			return flush()
		}
	}
}
