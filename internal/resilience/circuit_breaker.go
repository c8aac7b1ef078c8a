// SPDX-License-Identifier: MIT

// Package resilience guards calls to unreliable upstreams.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/biketrack/biketrack/internal/metrics"
)

// State is the position of a CircuitBreaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned instead of calling the upstream.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultThreshold = 5
	defaultCooldown  = 30 * time.Second
)

// CircuitBreaker stops calling an upstream after consecutive failures. Once
// the cooldown has passed it admits a single trial call; its outcome
// closes or reopens the circuit.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	isFailure func(error) bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trialing  bool
}

type Option func(*CircuitBreaker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithFailurePredicate limits which errors count against the upstream.
// Other errors are returned unchanged and count as a healthy answer.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.isFailure = fn }
}

// NewCircuitBreaker returns a closed breaker. Non-positive threshold and
// cooldown select 5 failures and 30s.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	cb := &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		isFailure: func(error) bool { return true },
		state:     StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(name, string(StateClosed))
	return cb
}

// Do calls fn unless the circuit is open. A failure caused by ctx ending
// says nothing about the upstream and leaves the counters alone.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	trial, ok := cb.admit()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		cb.abandon(trial)
	case err != nil && cb.isFailure(err):
		cb.fail(trial)
	default:
		cb.succeed()
	}
	return err
}

// Check returns ErrCircuitOpen while calls are refused.
func (cb *CircuitBreaker) Check() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.refusing() {
		return ErrCircuitOpen
	}
	return nil
}

// RetryAfter is how long callers should wait before trying again; zero
// when calls are admitted.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.refusing() {
		return 0
	}
	if cb.state == StateHalfOpen {
		// A trial call is in flight; its answer is at most one upstream timeout away.
		return time.Second
	}
	return cb.cooldown - cb.now().Sub(cb.openedAt)
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// refusing must be called with mu held.
func (cb *CircuitBreaker) refusing() bool {
	switch cb.state {
	case StateOpen:
		return cb.now().Sub(cb.openedAt) < cb.cooldown
	case StateHalfOpen:
		return cb.trialing
	}
	return false
}

func (cb *CircuitBreaker) admit() (trial bool, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return false, true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false, false
		}
		cb.setState(StateHalfOpen)
	}
	if cb.trialing {
		return false, false
	}
	cb.trialing = true
	return true, true
}

func (cb *CircuitBreaker) fail(trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch {
	case trial:
		cb.trialing = false
		metrics.RecordCircuitBreakerTrip(cb.name, "trial_failed")
		cb.open()
	case cb.state == StateClosed && cb.failures >= cb.threshold:
		metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
		cb.open()
	}
}

func (cb *CircuitBreaker) succeed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.trialing = false
	cb.setState(StateClosed)
}

func (cb *CircuitBreaker) abandon(trial bool) {
	if !trial {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialing = false
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.setState(StateOpen)
}

func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	metrics.SetCircuitBreakerState(cb.name, string(s))
}
