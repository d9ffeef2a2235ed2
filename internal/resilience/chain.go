package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/vitaliisemenov/driftctl/internal/domain"
)

// ChainConfig composes the four decorators used for every outbound
// call in this system, applied in the fixed order retry → breaker →
// bulkhead → timeout (spec.md §9's "Source-pattern → target-pattern
// translations").
type ChainConfig struct {
	Retry    *RetryPolicy
	Breaker  *CircuitBreaker
	Bulkhead *Bulkhead
	Timeout  time.Duration
}

// Chain is a reusable, named resilience decorator stack for one
// dependency (confighash client, refresh dispatcher, bus producer, ...).
type Chain struct {
	name string
	cfg  ChainConfig
}

// NewChain builds a Chain for the named dependency.
func NewChain(name string, cfg ChainConfig) *Chain {
	return &Chain{name: name, cfg: cfg}
}

// Execute runs operation through retry, circuit breaker, bulkhead, and
// time limit, in that order. The breaker and bulkhead apply per retry
// attempt: the breaker decides whether this attempt may even try, the
// bulkhead limits the rate at which attempts start, and the timeout bounds each
// attempt's wall time.
func Execute[T any](ctx context.Context, c *Chain, operation func(context.Context) (T, error)) (T, error) {
	var zero T

	attempt := func() (T, error) {
		if c.cfg.Breaker != nil && !c.cfg.Breaker.CanAttempt() {
			return zero, fmt.Errorf("%s: %w", c.name, domain.ErrCircuitOpen)
		}

		if c.cfg.Bulkhead != nil {
			if err := c.cfg.Bulkhead.Acquire(ctx); err != nil {
				return zero, fmt.Errorf("%s: %w", c.name, err)
			}
		}

		var result T
		var err error
		if c.cfg.Timeout > 0 {
			result, err = WithTimeLimit(ctx, c.cfg.Timeout, operation)
		} else {
			result, err = operation(ctx)
		}

		if c.cfg.Breaker != nil {
			if err != nil {
				c.cfg.Breaker.RecordFailure()
			} else {
				c.cfg.Breaker.RecordSuccess()
			}
		}
		return result, err
	}

	if c.cfg.Retry == nil {
		return attempt()
	}

	result, err := WithRetryFunc(ctx, c.cfg.Retry, attempt)
	return result, err
}
