package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/storeadmin/resilience"
)

func ExampleNewExecutorFromConfig() {
	guard := resilience.NewExecutorFromConfig(resilience.Config{
		Timeout:       5 * time.Second,
		MaxConcurrent: 4,
		RateLimit:     20,
		Burst:         10,
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		},
	})

	err := guard.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	fmt.Println(err)
	fmt.Println(guard.Snapshot().Circuit.State)
	// Output:
	// <nil>
	// closed
}

func ExampleCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})

	down := func(ctx context.Context) error { return errors.New("connection refused") }
	for range 2 {
		_ = cb.Execute(context.Background(), down)
	}

	err := cb.Execute(context.Background(), down)
	fmt.Println(cb.State())
	fmt.Println(errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// open
	// true
}

func ExampleIsRejection() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 0.1, Burst: 1})

	op := func(ctx context.Context) error { return nil }
	_ = rl.Execute(context.Background(), op)
	err := rl.Execute(context.Background(), op)

	fmt.Println(resilience.IsRejection(err))
	// Output: true
}

func ExampleExecuteWithTimeout() {
	err := resilience.ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	fmt.Println(errors.Is(err, resilience.ErrTimeout))
	// Output: true
}
