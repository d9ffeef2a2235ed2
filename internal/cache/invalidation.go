package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/vitaliisemenov/driftctl/internal/metrics"
)

const invalidationChannel = "cache:invalidation"

// InvalidationMessage is published on invalidationChannel whenever a
// process-local write should be mirrored as an L1 eviction on every
// other process sharing the same Distributed provider.
type InvalidationMessage struct {
	CacheName string `json:"cache_name"`
	Key       string `json:"key"`
	Pattern   bool   `json:"pattern"`
}

// InvalidationBroadcaster publishes and subscribes to cache
// invalidation notices over Redis pub/sub, scoped to a single message
// type instead of a generic event feed.
type InvalidationBroadcaster struct {
	client  *redis.Client
	local   *LocalProvider
	logger  *slog.Logger
	metrics *metrics.CacheMetrics
}

func NewInvalidationBroadcaster(client *redis.Client, local *LocalProvider, m *metrics.CacheMetrics, logger *slog.Logger) *InvalidationBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidationBroadcaster{client: client, local: local, metrics: m, logger: logger.With("component", "cache.invalidation")}
}

// Publish announces that cacheName/key (or a pattern when pattern is
// true) was invalidated by this process.
func (b *InvalidationBroadcaster) Publish(ctx context.Context, cacheName, key string, pattern bool) error {
	msg := InvalidationMessage{CacheName: cacheName, Key: key, Pattern: pattern}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, invalidationChannel, data).Err()
}

// Listen runs until ctx is cancelled, evicting the local provider's
// entry for every invalidation published on the channel. Messages carry
// no sender, so this process's own invalidations are applied as well.
func (b *InvalidationBroadcaster) Listen(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg InvalidationMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Warn("failed to decode invalidation message", "error", err)
				continue
			}
			if msg.Pattern {
				if err := b.local.InvalidatePattern(ctx, msg.CacheName, msg.Key); err != nil {
					b.logger.Warn("local pattern invalidation failed", "error", err)
					continue
				}
				if b.metrics != nil {
					b.metrics.InvalidationsTotal.WithLabelValues(msg.CacheName, "remote").Inc()
				}
				continue
			}
			if err := b.local.Invalidate(ctx, msg.CacheName, msg.Key); err != nil {
				b.logger.Warn("local invalidation failed", "error", err)
				continue
			}
			if b.metrics != nil {
				b.metrics.InvalidationsTotal.WithLabelValues(msg.CacheName, "remote").Inc()
			}
		}
	}
}
