// Package resilience guards calls to the storefront backend.
//
// Every guard wraps a func(context.Context) error and can be used alone or
// composed through an Executor:
//
//   - Rate Limiter: a token bucket that caps the request rate.
//
//   - Bulkhead: bounds the number of requests in flight.
//
//   - Circuit Breaker: stops calling a backend after consecutive failures
//     and probes it again once ResetTimeout has passed.
//
//   - Timeout: gives each request a deadline.
//
// Nothing here retries. A request that fails is reported to the caller once,
// which keeps writes from reaching the backend twice.
//
// # Usage
//
//	guard := resilience.NewExecutorFromConfig(resilience.Config{
//	    Timeout:       10 * time.Second,
//	    MaxConcurrent: 8,
//	    RateLimit:     20,
//	    Burst:         10,
//	})
//
//	err := guard.Execute(ctx, func(ctx context.Context) error {
//	    return send(ctx)
//	})
//
// Rejections (ErrCircuitOpen, ErrBulkheadFull, ErrRateLimitExceeded) mean the
// request never left the process; IsRejection reports them.
package resilience
