package domain

import "errors"

// Error kinds shared across every component, per the error handling
// design: these are sentinels to wrap with context via %w, not a type
// hierarchy to switch on.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrExternalUnavailable  = errors.New("external service unavailable")
	ErrTimeout              = errors.New("operation timed out")
	ErrCircuitOpen          = errors.New("circuit breaker open")
	ErrCacheUnavailable     = errors.New("cache unavailable")
	ErrPersistenceFailure   = errors.New("persistence failure")
	ErrSerializationFailure = errors.New("serialization failure")
	ErrInternal             = errors.New("internal error")
	ErrBusUnavailable       = errors.New("heartbeat bus unavailable")
)
