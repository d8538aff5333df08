package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means requests flow normally.
	StateClosed State = iota
	// StateOpen means requests are rejected without reaching the backend.
	StateOpen
	// StateHalfOpen means a limited number of probe requests are let through.
	StateHalfOpen
)

func (s State) String() string {
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

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of probes allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after every transition, outside the breaker's
	// lock.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts against the backend.
	// Default: every non-nil error except caller cancellation.
	IsFailure func(err error) bool
}

type transition struct {
	from, to State
}

// CircuitBreaker stops sending requests to a backend that keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	openedAt    time.Time
	lastFailure time.Time
	probesInUse int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return &CircuitBreaker{config: config}
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state, moved := cb.advanceLocked()
	cb.mu.Unlock()

	cb.notify(moved)
	return state
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var moved []transition
	if cb.state != StateClosed {
		moved = append(moved, transition{cb.state, StateClosed})
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.probesInUse = 0
	cb.mu.Unlock()

	cb.notify(moved)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	state, moved := cb.advanceLocked()
	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.probesInUse >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.probesInUse++
		}
	}
	cb.mu.Unlock()

	cb.notify(moved)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	failed := cb.config.IsFailure(err)

	cb.mu.Lock()
	var moved []transition
	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.MaxFailures {
				moved = append(moved, cb.openLocked())
			}
		} else {
			cb.failures = 0
			cb.successes++
		}

	case StateHalfOpen:
		if cb.probesInUse > 0 {
			cb.probesInUse--
		}
		if failed {
			cb.lastFailure = time.Now()
			moved = append(moved, cb.openLocked())
		} else {
			moved = append(moved, transition{StateHalfOpen, StateClosed})
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 1
		}
	}
	cb.mu.Unlock()

	cb.notify(moved)
}

func (cb *CircuitBreaker) openLocked() transition {
	t := transition{cb.state, StateOpen}
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.probesInUse = 0
	return t
}

// advanceLocked moves an open circuit to half-open once ResetTimeout has
// elapsed.
func (cb *CircuitBreaker) advanceLocked() (State, []transition) {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.probesInUse = 0
		return cb.state, []transition{{StateOpen, StateHalfOpen}}
	}
	return cb.state, nil
}

func (cb *CircuitBreaker) notify(moved []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, t := range moved {
		cb.config.OnStateChange(t.from, t.to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	state, moved := cb.advanceLocked()
	m := CircuitBreakerMetrics{
		State:       state,
		Failures:    cb.failures,
		Successes:   cb.successes,
		LastFailure: cb.lastFailure,
	}
	cb.mu.Unlock()

	cb.notify(moved)
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	Successes   int       `json:"successes"`
	LastFailure time.Time `json:"last_failure,omitzero"`
}
