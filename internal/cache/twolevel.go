package cache

import (
	"context"
	"log/slog"
)

// TwoLevelProvider composes a Local L1 in front of a Distributed L2.
// Reads check L1 first, fall through to L2 on miss, and populate both
// levels from the loader on a full miss. WriteThrough controls whether
// Put updates both levels or only L2; InvalidateL1OnL2Update controls
// whether a Put also evicts the local copy so a stale L1 entry cannot
// outlive an L2 write from another process.
//
// A write or invalidation only ever touches this process's own L1.
// broadcaster, when set, announces the same change over Redis pub/sub
// so every other process sharing the L2 also evicts its L1 copy
// instead of serving a stale value until that key's TTL expires.
type TwoLevelProvider struct {
	l1                     *LocalProvider
	l2                     *DistributedProvider
	writeThrough           bool
	invalidateL1OnL2Update bool
	broadcaster            *InvalidationBroadcaster
	logger                 *slog.Logger
}

func NewTwoLevelProvider(l1 *LocalProvider, l2 *DistributedProvider, writeThrough, invalidateL1OnL2Update bool, broadcaster *InvalidationBroadcaster, logger *slog.Logger) *TwoLevelProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwoLevelProvider{
		l1:                     l1,
		l2:                     l2,
		writeThrough:           writeThrough,
		invalidateL1OnL2Update: invalidateL1OnL2Update,
		broadcaster:            broadcaster,
		logger:                 logger.With("component", "cache.twolevel"),
	}
}

// publish announces a local change to every other process watching the
// same broadcaster. Failures are logged, not returned: a missed
// broadcast degrades other nodes' L1 freshness until TTL expiry, it
// does not invalidate this node's own write.
func (p *TwoLevelProvider) publish(ctx context.Context, cacheName, key string, pattern bool) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Publish(ctx, cacheName, key, pattern); err != nil {
		p.logger.Warn("failed to publish cache invalidation", "cache", cacheName, "error", err)
	}
}

func (p *TwoLevelProvider) Get(ctx context.Context, cacheName, key string, loader Loader) (any, error) {
	if v, err := p.l1.Get(ctx, cacheName, key, nil); err == nil {
		return v, nil
	}

	v, err := p.l2.Get(ctx, cacheName, key, loader)
	if err != nil {
		return nil, err
	}
	if putErr := p.l1.Put(ctx, cacheName, key, v); putErr != nil {
		p.logger.Warn("failed to populate L1 after L2 hit", "error", putErr)
	}
	return v, nil
}

func (p *TwoLevelProvider) Put(ctx context.Context, cacheName, key string, value any) error {
	if err := p.l2.Put(ctx, cacheName, key, value); err != nil {
		return err
	}
	defer p.publish(ctx, cacheName, key, false)
	if p.invalidateL1OnL2Update {
		return p.l1.Invalidate(ctx, cacheName, key)
	}
	if p.writeThrough {
		return p.l1.Put(ctx, cacheName, key, value)
	}
	return nil
}

func (p *TwoLevelProvider) Invalidate(ctx context.Context, cacheName, key string) error {
	if err := p.l1.Invalidate(ctx, cacheName, key); err != nil {
		return err
	}
	if err := p.l2.Invalidate(ctx, cacheName, key); err != nil {
		return err
	}
	p.publish(ctx, cacheName, key, false)
	return nil
}

func (p *TwoLevelProvider) InvalidatePattern(ctx context.Context, cacheName, pattern string) error {
	if err := p.l1.InvalidatePattern(ctx, cacheName, pattern); err != nil {
		return err
	}
	if err := p.l2.InvalidatePattern(ctx, cacheName, pattern); err != nil {
		return err
	}
	p.publish(ctx, cacheName, pattern, true)
	return nil
}

func (p *TwoLevelProvider) Clear(ctx context.Context, cacheName string) error {
	if err := p.l1.Clear(ctx, cacheName); err != nil {
		return err
	}
	return p.l2.Clear(ctx, cacheName)
}

func (p *TwoLevelProvider) Name() string { return "twolevel" }
