package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds each check.
	// Default: 5 seconds
	Timeout time.Duration
}

// Aggregator runs registered checkers concurrently and combines their
// results.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Aggregator{config: config}
}

// Register adds checkers. A checker replaces an earlier one with the same
// name and keeps its position.
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range checkers {
		i := slices.IndexFunc(a.checkers, func(e Checker) bool { return e.Name() == c.Name() })
		if i >= 0 {
			a.checkers[i] = c
		} else {
			a.checkers = append(a.checkers, c)
		}
	}
}

// Names returns the registered checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs the named checker.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
	var c Checker
	if i >= 0 {
		c = a.checkers[i]
	}
	a.mu.RUnlock()

	if c == nil {
		return Result{}, ErrCheckerNotFound
	}
	return a.run(ctx, c), nil
}

// CheckAll runs every checker concurrently.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = a.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(checkers))
	for i, c := range checkers {
		out[c.Name()] = results[i]
	}
	return out
}

// OverallStatus is the worst status in results; no results is healthy.
func OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		overall = max(overall, r.Status)
	}
	return overall
}

func (a *Aggregator) run(ctx context.Context, c Checker) Result {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	if r.Duration == 0 {
		r.Duration = time.Since(start)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
