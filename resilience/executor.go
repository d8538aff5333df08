package resilience

import (
	"context"
	"time"
)

// Config describes a full request guard.
type Config struct {
	Timeout       time.Duration
	MaxConcurrent int
	RateLimit     float64 // requests per second; zero disables the limiter
	Burst         int
	WaitOnLimit   bool
	Breaker       CircuitBreakerConfig
}

// Executor composes the request guards. Requests are never retried, so a
// backend write is sent at most once.
type Executor struct {
	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExecutorFromConfig builds an executor with every guard enabled by cfg.
func NewExecutorFromConfig(cfg Config) *Executor {
	opts := []ExecutorOption{
		WithCircuitBreaker(NewCircuitBreaker(cfg.Breaker)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, WithBulkhead(NewBulkhead(BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		})))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimiter(NewRateLimiter(RateLimiterConfig{
			Rate:        cfg.RateLimit,
			Burst:       cfg.Burst,
			WaitOnLimit: cfg.WaitOnLimit,
		})))
	}
	return NewExecutor(opts...)
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithBulkhead adds bulkhead isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithTimeout adds a per-request timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// Execute runs op through the configured guards.
//
// The order, outermost first, is:
// 1. Rate Limiter
// 2. Bulkhead
// 3. Circuit Breaker
// 4. Timeout
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// Snapshot is the state of an executor's guards.
type Snapshot struct {
	Circuit  *CircuitBreakerMetrics `json:"circuit,omitempty"`
	Bulkhead *BulkheadMetrics       `json:"bulkhead,omitempty"`
	Tokens   *float64               `json:"tokens,omitempty"`
}

// Snapshot reports the current state of each configured guard.
func (e *Executor) Snapshot() Snapshot {
	var s Snapshot
	if e.circuitBreaker != nil {
		m := e.circuitBreaker.Metrics()
		s.Circuit = &m
	}
	if e.bulkhead != nil {
		m := e.bulkhead.Metrics()
		s.Bulkhead = &m
	}
	if e.rateLimiter != nil {
		t := e.rateLimiter.Tokens()
		s.Tokens = &t
	}
	return s
}
