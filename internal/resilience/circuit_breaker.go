// SPDX-License-Identifier: MIT

// Package resilience guards upstream sources that keep failing.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pkepg/epgstitch/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError is returned while a breaker rejects calls. It matches
// ErrCircuitOpen.
type OpenError struct {
	Name    string
	RetryAt time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s: circuit breaker is open until %s", e.Name, e.RetryAt.Format(time.RFC3339))
}

func (e *OpenError) Is(target error) bool { return target == ErrCircuitOpen }

// CircuitBreaker stops calls to a source after threshold consecutive
// counted failures. Once resetTimeout has passed a single probe is let
// through; its result closes or reopens the breaker.
type CircuitBreaker struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

type Option func(*CircuitBreaker)

// WithNow replaces the clock; tests use it to step past the reset timeout.
func WithNow(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// NewCircuitBreaker creates a closed breaker. name labels its metrics.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		threshold:    max(threshold, 1),
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        StateClosed,
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = time.Minute
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(cb.name, string(cb.state))
	return cb
}

// Execute runs fn unless the breaker rejects it with an *OpenError. Errors
// for which counts returns false mean the source answered, so they reset
// the failure count like a success.
func (cb *CircuitBreaker) Execute(fn func() error, counts func(error) bool) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err != nil && (counts == nil || counts(err)))
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return &OpenError{Name: cb.name, RetryAt: cb.openedAt.Add(cb.resetTimeout)}
		}
		cb.transitionTo(StateHalfOpen)
	}
	// half-open: one probe at a time
	if cb.probing {
		return &OpenError{Name: cb.name, RetryAt: cb.now()}
	}
	cb.probing = true
	return nil
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.state == StateHalfOpen
	cb.probing = false
	if !failed {
		cb.failures = 0
		cb.transitionTo(StateClosed)
		return
	}
	cb.failures++
	if wasProbe || cb.failures >= cb.threshold {
		cb.transitionTo(StateOpen)
	}
}

// transitionTo updates state and metrics. Caller must hold mu.
func (cb *CircuitBreaker) transitionTo(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	if s == StateOpen {
		cb.openedAt = cb.now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(s))
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
