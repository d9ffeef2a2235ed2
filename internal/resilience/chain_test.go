package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_SucceedsWithoutDecorators(t *testing.T) {
	c := NewChain("test", ChainConfig{})
	result, err := Execute(context.Background(), c, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestExecute_BreakerBlocksWhenOpen(t *testing.T) {
	breaker := NewCircuitBreaker("test", BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour})
	breaker.RecordFailure()

	c := NewChain("test", ChainConfig{Breaker: breaker})
	calls := 0
	_, err := Execute(context.Background(), c, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestExecute_RetriesOnFailure(t *testing.T) {
	attempts := 0
	policy := &RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	c := NewChain("test", ChainConfig{Retry: policy})

	_, err := Execute(context.Background(), c, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestExecute_TimesOut(t *testing.T) {
	c := NewChain("test", ChainConfig{Timeout: time.Millisecond})
	_, err := Execute(context.Background(), c, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrTimeLimitExceeded)
}
