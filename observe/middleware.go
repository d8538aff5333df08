package observe

import (
	"context"
	"time"
)

// ExecuteFunc performs one backend request and reports its HTTP status code.
// The status is zero when no response was received.
type ExecuteFunc func(ctx context.Context, op Operation) (status int, err error)

// Middleware wraps backend requests with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with tracing, metrics and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op Operation) (int, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()

		status, err := fn(ctx, op)

		duration := time.Since(start)
		m.tracer.EndSpan(span, status, err)
		m.metrics.RecordRequest(ctx, op, status, duration, err)

		opLogger := m.logger.WithOperation(op)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if status > 0 {
			fields = append(fields, Field{Key: "status", Value: status})
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Warn(ctx, "request failed", fields...)
		} else {
			opLogger.Debug(ctx, "request completed", fields...)
		}

		return status, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
