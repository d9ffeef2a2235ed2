package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitaliisemenov/driftctl/internal/metrics"
	"github.com/vitaliisemenov/driftctl/internal/resilience"
)

// DistributedProvider is the L2 cache backend: Redis-backed, guarded
// by a circuit breaker so a Redis outage degrades rather than stalls
// every caller. When the breaker is open and fallback is set, reads
// are served from it and writes are dropped and logged.
type DistributedProvider struct {
	client   *redis.Client
	breaker  *resilience.CircuitBreaker
	fallback Provider
	logger   *slog.Logger
	metrics  *metrics.CacheMetrics

	mu   sync.Mutex
	ttls map[string]time.Duration
}

// NewDistributedProvider wires a Redis client behind a circuit
// breaker. fallback may be nil; when set (typically a LocalProvider),
// it is consulted on an open breaker instead of failing the call. m
// may be nil to disable instrumentation.
func NewDistributedProvider(client *redis.Client, fallback Provider, m *metrics.CacheMetrics, logger *slog.Logger) *DistributedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	var observer resilience.BreakerObserver
	if m != nil {
		observer = cacheBreakerObserver{metrics: m}
	}
	return &DistributedProvider{
		client:   client,
		breaker:  resilience.NewCircuitBreakerWithObserver("cache-distributed", resilience.BreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 10 * time.Second}, observer),
		fallback: fallback,
		logger:   logger.With("component", "cache.distributed"),
		metrics:  m,
		ttls:     make(map[string]time.Duration),
	}
}

// Configure sets the write TTL used for cacheName's entries. A cache
// with no configured TTL (or a zero/negative one) is written without
// expiration, matching Redis's own default.
func (p *DistributedProvider) Configure(cacheName string, cfg NamedCacheConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ttls[cacheName] = cfg.TTL
}

func (p *DistributedProvider) ttlFor(cacheName string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ttls[cacheName]
}

// cacheBreakerObserver adapts the Distributed provider's circuit
// breaker transitions into CacheMetrics.
type cacheBreakerObserver struct {
	metrics *metrics.CacheMetrics
}

func (o cacheBreakerObserver) OnTrip(name string) {
	o.metrics.BreakerTripsTotal.WithLabelValues(name).Inc()
}

func (cacheBreakerObserver) OnRecovery(name string) {}

func (o cacheBreakerObserver) OnStateChange(name string, state resilience.BreakerState) {
	o.metrics.BreakerStateGauge.WithLabelValues(name).Set(float64(state))
}

func (p *DistributedProvider) Get(ctx context.Context, cacheName, key string, loader Loader) (any, error) {
	k := cacheKey(cacheName, key)

	if !p.breaker.CanAttempt() {
		p.logger.Warn("distributed cache circuit open, degrading", "key", k)
		if p.fallback != nil {
			if p.metrics != nil {
				p.metrics.FallbackReadsTotal.WithLabelValues(cacheName).Inc()
			}
			return p.fallback.Get(ctx, cacheName, key, loader)
		}
		return p.loadOnly(ctx, loader)
	}

	val, err := p.client.Get(ctx, k).Result()
	if err == nil {
		p.breaker.RecordSuccess()
		var v any
		if jsonErr := json.Unmarshal([]byte(val), &v); jsonErr != nil {
			return nil, jsonErr
		}
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		p.breaker.RecordFailure()
		p.logger.Error("distributed cache get failed", "key", k, "error", err)
		if p.fallback != nil {
			if p.metrics != nil {
				p.metrics.FallbackReadsTotal.WithLabelValues(cacheName).Inc()
			}
			return p.fallback.Get(ctx, cacheName, key, loader)
		}
		return p.loadOnly(ctx, loader)
	}
	p.breaker.RecordSuccess()

	if loader == nil {
		return nil, ErrNotFound
	}
	v, loadErr := loader(ctx)
	if loadErr != nil {
		return nil, loadErr
	}
	if putErr := p.Put(ctx, cacheName, key, v); putErr != nil {
		p.logger.Warn("failed to populate distributed cache after load", "key", k, "error", putErr)
	}
	return v, nil
}

func (p *DistributedProvider) loadOnly(ctx context.Context, loader Loader) (any, error) {
	if loader == nil {
		return nil, ErrNotFound
	}
	return loader(ctx)
}

func (p *DistributedProvider) Put(ctx context.Context, cacheName, key string, value any) error {
	k := cacheKey(cacheName, key)
	if !p.breaker.CanAttempt() {
		p.logger.Warn("distributed cache circuit open, dropping write", "key", k)
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, k, data, p.ttlFor(cacheName)).Err(); err != nil {
		p.breaker.RecordFailure()
		return err
	}
	p.breaker.RecordSuccess()
	return nil
}

func (p *DistributedProvider) Invalidate(ctx context.Context, cacheName, key string) error {
	return p.client.Del(ctx, cacheKey(cacheName, key)).Err()
}

func (p *DistributedProvider) InvalidatePattern(ctx context.Context, cacheName, pattern string) error {
	iter := p.client.Scan(ctx, 0, cacheKey(cacheName, pattern)+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := p.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (p *DistributedProvider) Clear(ctx context.Context, cacheName string) error {
	return p.InvalidatePattern(ctx, cacheName, "")
}

func (p *DistributedProvider) Name() string { return "distributed" }
