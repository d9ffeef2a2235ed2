// Package cache implements the Cache Tier: a named, multi-provider
// cache abstraction sitting in front of the Config Hash Client so the
// Batch Processor does not hit the config source once per heartbeat.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Provider when a key is absent and no
// loader was supplied.
var ErrNotFound = errors.New("cache: key not found")

// Loader produces the value for key on a miss. Returning an error
// leaves the cache unpopulated; returning (nil, nil) stores a null
// value when the named cache allows it.
type Loader func(ctx context.Context) (any, error)

// NamedCacheConfig describes one named cache's policy. The zero value
// is a usable default: the Local provider then uses a 5-minute TTL and
// a size of 10000.
type NamedCacheConfig struct {
	TTL             time.Duration
	MaxSize         int
	AllowNullValues bool
}

// Provider is the minimal surface every cache backend implements.
// Callers use the higher-level Get/Put/Invalidate on Manager instead
// of a Provider directly.
type Provider interface {
	Get(ctx context.Context, cacheName, key string, loader Loader) (any, error)
	Put(ctx context.Context, cacheName, key string, value any) error
	Invalidate(ctx context.Context, cacheName, key string) error
	InvalidatePattern(ctx context.Context, cacheName, pattern string) error
	Clear(ctx context.Context, cacheName string) error
	Name() string
}

func cacheKey(cacheName, key string) string {
	return cacheName + ":" + key
}
