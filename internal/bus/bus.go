// Package bus implements the Heartbeat Bus: the durable, partitioned
// transport between the Ingestion Gateway and the Batch Processor.
package bus

import "context"

// Message is one heartbeat envelope placed on the bus. Key selects
// the partition (service name, per spec.md's partitioning
// requirement); Value is the serialized HeartbeatPayload.
type Message struct {
	Key   string
	Value []byte
}

// Producer accepts messages for asynchronous delivery.
type Producer interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// BatchHandler processes one consumer-group batch of messages. An
// error causes the batch to be redelivered; implementations must be
// idempotent (see DriftLog.Save's dedup-key uniqueness constraint).
type BatchHandler func(ctx context.Context, batch []Message) error

// ConsumerGroup drives a BatchHandler over the bus until ctx is
// cancelled or Close is called.
type ConsumerGroup interface {
	Run(ctx context.Context, handler BatchHandler) error
	Close() error
}

// Pinger is implemented by bus backends that can cheaply verify
// reachability without consuming or producing a real message.
// SaramaBus and InMemoryBus both implement it.
type Pinger interface {
	Ping(ctx context.Context) error
}
