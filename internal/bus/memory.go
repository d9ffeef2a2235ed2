package bus

import (
	"context"
	"sync"
	"time"
)

const defaultPartitions = 8

// InMemoryBus is an in-process Heartbeat Bus for tests and for
// deployments without Kafka. Each of its partitions is a buffered
// channel; Send hashes Message.Key into a partition so messages for
// the same service are always delivered to the same goroutine in
// order, mirroring the worker-pool/bounded-queue idiom of the
// teacher's async webhook processor without needing its metrics/job
// wrapper types.
type InMemoryBus struct {
	partitions []chan Message
	closeOnce  sync.Once
	closed     chan struct{}
}

func NewInMemoryBus(queueSize int) *InMemoryBus {
	if queueSize <= 0 {
		queueSize = 1000
	}
	b := &InMemoryBus{
		partitions: make([]chan Message, defaultPartitions),
		closed:     make(chan struct{}),
	}
	for i := range b.partitions {
		b.partitions[i] = make(chan Message, queueSize)
	}
	return b
}

// Ping succeeds until Close is called and returns ErrBusClosed after:
// an in-process bus has no external dependency to fail against.
func (b *InMemoryBus) Ping(ctx context.Context) error {
	select {
	case <-b.closed:
		return ErrBusClosed
	default:
		return nil
	}
}

func (b *InMemoryBus) partitionFor(key string) int {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return int(h % uint32(len(b.partitions)))
}

func (b *InMemoryBus) Send(ctx context.Context, msg Message) error {
	select {
	case <-b.closed:
		return ErrBusClosed
	default:
	}

	p := b.partitions[b.partitionFor(msg.Key)]
	select {
	case p <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closed:
		return ErrBusClosed
	}
}

func (b *InMemoryBus) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

// Run accumulates messages from every partition into batches bounded
// by batchSize/batchWindow and invokes handler, same shape as
// SaramaBus.Run so callers can swap implementations without changing
// Batch Processor wiring.
func (b *InMemoryBus) Run(ctx context.Context, handler BatchHandler) error {
	return b.RunWithBatch(ctx, handler, 100, time.Second)
}

func (b *InMemoryBus) RunWithBatch(ctx context.Context, handler BatchHandler, batchSize int, batchWindow time.Duration) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(b.partitions))

	for _, p := range b.partitions {
		wg.Add(1)
		go func(partition chan Message) {
			defer wg.Done()
			if err := consumePartition(ctx, partition, b.closed, handler, batchSize, batchWindow); err != nil {
				errs <- err
			}
		}(p)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func consumePartition(ctx context.Context, partition chan Message, closed chan struct{}, handler BatchHandler, batchSize int, batchWindow time.Duration) error {
	batch := make([]Message, 0, batchSize)
	ticker := time.NewTicker(batchWindow)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := handler(ctx, batch)
		batch = batch[:0]
		return err
	}

	for {
		select {
		case msg := <-partition:
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case <-closed:
			return flush()
		case <-ctx.Done():
			return flush()
		}
	}
}
