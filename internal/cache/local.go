package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// LocalProvider is the L1, process-local cache backend: a
// size-bounded, write-TTL'd LRU per named cache. It also records each
// key's last-access time in a secondary map, but no access-based
// expiry is applied: entries leave only by write TTL, LRU eviction or
// invalidation.
type LocalProvider struct {
	mu      sync.Mutex
	named   map[string]*lru.LRU[string, any]
	configs map[string]NamedCacheConfig
	access  map[string]time.Time
}

// NewLocalProvider creates an empty Local provider. Named caches are
// created lazily on first use with cfg, or with sane defaults if cfg
// is the zero value.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{
		named:   make(map[string]*lru.LRU[string, any]),
		configs: make(map[string]NamedCacheConfig),
		access:  make(map[string]time.Time),
	}
}

// Configure sets the policy for cacheName before first use. Calling it
// after the named cache already exists is a no-op.
func (p *LocalProvider) Configure(cacheName string, cfg NamedCacheConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.named[cacheName]; ok {
		return
	}
	p.configs[cacheName] = cfg
}

func (p *LocalProvider) cacheFor(cacheName string) *lru.LRU[string, any] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.named[cacheName]; ok {
		return c
	}

	cfg := p.configs[cacheName]
	size := cfg.MaxSize
	if size <= 0 {
		size = 10000
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := lru.NewLRU[string, any](size, nil, ttl)
	p.named[cacheName] = c
	return c
}

func (p *LocalProvider) Get(ctx context.Context, cacheName, key string, loader Loader) (any, error) {
	c := p.cacheFor(cacheName)
	k := cacheKey(cacheName, key)

	if v, ok := c.Get(k); ok {
		p.touch(k)
		return v, nil
	}

	if loader == nil {
		return nil, ErrNotFound
	}

	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil && !p.configs[cacheName].AllowNullValues {
		return nil, nil
	}
	c.Add(k, v)
	p.touch(k)
	return v, nil
}

func (p *LocalProvider) touch(k string) {
	p.mu.Lock()
	p.access[k] = time.Now()
	p.mu.Unlock()
}

func (p *LocalProvider) Put(ctx context.Context, cacheName, key string, value any) error {
	c := p.cacheFor(cacheName)
	k := cacheKey(cacheName, key)
	c.Add(k, value)
	p.touch(k)
	return nil
}

func (p *LocalProvider) Invalidate(ctx context.Context, cacheName, key string) error {
	c := p.cacheFor(cacheName)
	k := cacheKey(cacheName, key)
	c.Remove(k)
	p.mu.Lock()
	delete(p.access, k)
	p.mu.Unlock()
	return nil
}

// InvalidatePattern removes every key in cacheName whose key starts
// with pattern, the same key-relative prefix the other providers take
// (no regex engine is warranted here).
func (p *LocalProvider) InvalidatePattern(ctx context.Context, cacheName, pattern string) error {
	c := p.cacheFor(cacheName)
	prefix := cacheKey(cacheName, pattern)
	for _, k := range c.Keys() {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			c.Remove(k)
		}
	}
	return nil
}

func (p *LocalProvider) Clear(ctx context.Context, cacheName string) error {
	c := p.cacheFor(cacheName)
	c.Purge()
	return nil
}

func (p *LocalProvider) Name() string { return "local" }
