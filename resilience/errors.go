package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// IsRejection reports whether err means the request was never sent: the
// circuit was open, the bulkhead full or the rate limit hit.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrBulkheadFull) ||
		errors.Is(err, ErrRateLimitExceeded)
}
