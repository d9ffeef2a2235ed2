package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrTimeLimitExceeded is returned by WithTimeLimit when the wrapped
// operation does not complete within the given duration.
var ErrTimeLimitExceeded = errors.New("resilience: time limit exceeded")

// WithTimeLimit derives a context bounded by limit and runs operation
// against it. If operation has not returned by the deadline, it
// returns ErrTimeLimitExceeded. The operation itself is responsible
// for observing ctx.Done(); Go has no primitive to forcibly abandon a
// running goroutine.
func WithTimeLimit[T any](ctx context.Context, limit time.Duration, operation func(context.Context) (T, error)) (T, error) {
	boundedCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type outcome struct {
		result T
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := operation(boundedCtx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-boundedCtx.Done():
		var zero T
		return zero, ErrTimeLimitExceeded
	}
}
