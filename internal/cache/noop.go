package cache

import "context"

// NoopProvider never stores anything; every Get invokes the loader.
// Used when caching is disabled for a deployment profile.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (NoopProvider) Get(ctx context.Context, cacheName, key string, loader Loader) (any, error) {
	if loader == nil {
		return nil, ErrNotFound
	}
	return loader(ctx)
}

func (NoopProvider) Put(ctx context.Context, cacheName, key string, value any) error { return nil }

func (NoopProvider) Invalidate(ctx context.Context, cacheName, key string) error { return nil }

func (NoopProvider) InvalidatePattern(ctx context.Context, cacheName, pattern string) error {
	return nil
}

func (NoopProvider) Clear(ctx context.Context, cacheName string) error { return nil }

func (NoopProvider) Name() string { return "noop" }
