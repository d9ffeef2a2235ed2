package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelegatingCacheManager_SwitchProvider(t *testing.T) {
	ctx := context.Background()
	m := NewDelegatingCacheManager(NewNoopProvider())

	calls := 0
	_, err := m.Get(ctx, "hashes", "svc-a", func(ctx context.Context) (any, error) {
		calls++
		return "v1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	m.SwitchProvider(NewLocalProvider())
	require.NoError(t, m.Put(ctx, "hashes", "svc-a", "v2"))

	v, err := m.Get(ctx, "hashes", "svc-a", func(ctx context.Context) (any, error) {
		calls++
		return "should-not-run", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, calls)
}
