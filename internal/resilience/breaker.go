package resilience

import (
	"sync"
	"time"
)

// BreakerState is the current state of a CircuitBreaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int           // failures before opening
	SuccessThreshold int           // successes in half-open before closing
	Timeout          time.Duration // time to wait before trying half-open
}

// BreakerObserver receives state-transition notifications for metrics.
// Implementations must be safe to call concurrently.
type BreakerObserver interface {
	OnTrip(name string)
	OnRecovery(name string)
	OnStateChange(name string, state BreakerState)
}

// CircuitBreaker guards a single dependency (a target name: cache,
// bus, config source, ...) with the standard closed/open/half-open
// state machine.
type CircuitBreaker struct {
	config          BreakerConfig
	name            string
	observer        BreakerObserver
	mu              sync.RWMutex
	state           BreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// NewCircuitBreaker creates a CircuitBreaker with no metrics observer.
func NewCircuitBreaker(name string, config BreakerConfig) *CircuitBreaker {
	return NewCircuitBreakerWithObserver(name, config, nil)
}

// NewCircuitBreakerWithObserver creates a CircuitBreaker that reports
// state transitions to observer.
func NewCircuitBreakerWithObserver(name string, config BreakerConfig, observer BreakerObserver) *CircuitBreaker {
	cb := &CircuitBreaker{
		config:   config,
		name:     name,
		observer: observer,
		state:    StateClosed,
	}
	if cb.observer != nil {
		cb.observer.OnStateChange(cb.name, StateClosed)
	}
	return cb
}

// CanAttempt reports whether a call may currently be attempted.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		return time.Since(cb.lastFailureTime) > cb.config.Timeout
	default:
		return false
	}
}

// RecordSuccess records a successful attempt.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			if cb.observer != nil {
				cb.observer.OnRecovery(cb.name)
				cb.observer.OnStateChange(cb.name, StateClosed)
			}
		}
	case StateOpen:
		if time.Since(cb.lastFailureTime) > cb.config.Timeout {
			cb.state = StateHalfOpen
			cb.successCount = 1
			cb.failureCount = 0
		}
	}
}

// RecordFailure records a failed attempt.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()
	oldState := cb.state

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = StateOpen
			if cb.observer != nil {
				cb.observer.OnTrip(cb.name)
			}
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.successCount = 0
	}

	if cb.observer != nil && oldState != cb.state {
		cb.observer.OnStateChange(cb.name, cb.state)
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
}
