package resilience

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrBulkheadFull is returned when a bulkhead has no room and the
// caller did not wait for one (or the wait itself timed out).
var ErrBulkheadFull = errors.New("bulkhead: no capacity available")

// Bulkhead limits the rate at which calls to a dependency may start,
// using a token-bucket limiter. It does not track calls in flight and
// nothing is released when a call ends, so it does not cap how many
// calls run at the same time.
type Bulkhead struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// NewBulkhead creates a Bulkhead whose token bucket holds up to
// maxConcurrent tokens and refills at maxConcurrent tokens per second;
// maxWait bounds how long a caller will queue for a token before failing
// with ErrBulkheadFull.
func NewBulkhead(maxConcurrent int, maxWait time.Duration) *Bulkhead {
	return &Bulkhead{
		limiter: rate.NewLimiter(rate.Limit(maxConcurrent), maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is available, ctx is cancelled, or
// maxWait elapses, whichever comes first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	waitCtx := ctx
	if b.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.maxWait)
		defer cancel()
	}
	if err := b.limiter.Wait(waitCtx); err != nil {
		return ErrBulkheadFull
	}
	return nil
}
