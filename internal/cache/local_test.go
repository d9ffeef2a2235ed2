package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_GetMissInvokesLoader(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	calls := 0
	v, err := p.Get(ctx, "hashes", "svc-a", func(ctx context.Context) (any, error) {
		calls++
		return "abc123", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
	assert.Equal(t, 1, calls)

	v, err = p.Get(ctx, "hashes", "svc-a", func(ctx context.Context) (any, error) {
		calls++
		return "should-not-be-called", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
	assert.Equal(t, 1, calls)
}

func TestLocalProvider_GetMissNoLoaderReturnsNotFound(t *testing.T) {
	p := NewLocalProvider()
	_, err := p.Get(context.Background(), "hashes", "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalProvider_Invalidate(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	require.NoError(t, p.Put(ctx, "hashes", "svc-a", "v1"))
	require.NoError(t, p.Invalidate(ctx, "hashes", "svc-a"))

	_, err := p.Get(ctx, "hashes", "svc-a", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalProvider_InvalidatePattern(t *testing.T) {
	p := NewLocalProvider()
	ctx := context.Background()

	require.NoError(t, p.Put(ctx, "hashes", "svc-a:i1", "v1"))
	require.NoError(t, p.Put(ctx, "hashes", "svc-a:i2", "v2"))
	require.NoError(t, p.Put(ctx, "hashes", "svc-b:i1", "v3"))

	require.NoError(t, p.InvalidatePattern(ctx, "hashes", "svc-a"))

	_, err := p.Get(ctx, "hashes", "svc-a:i1", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := p.Get(ctx, "hashes", "svc-b:i1", nil)
	require.NoError(t, err)
	assert.Equal(t, "v3", v)
}

func TestLocalProvider_ConfigureTTL(t *testing.T) {
	p := NewLocalProvider()
	p.Configure("hashes", NamedCacheConfig{TTL: time.Millisecond, MaxSize: 10})

	ctx := context.Background()
	require.NoError(t, p.Put(ctx, "hashes", "svc-a", "v1"))

	time.Sleep(5 * time.Millisecond)
	_, err := p.Get(ctx, "hashes", "svc-a", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
