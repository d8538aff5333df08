package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent caps the requests in flight.
	// Default: 8
	MaxConcurrent int

	// MaxWait is how long a request queues for a slot. Zero rejects at once.
	MaxWait time.Duration
}

// Bulkhead caps the number of backend requests in flight so a burst of
// commands cannot pile onto a slow backend.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 8
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Execute runs op once a slot is free. It returns ErrBulkheadFull when no
// slot frees up within MaxWait, or ctx's error if the caller gives up first.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return op(ctx)
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if !b.sem.TryAcquire(1) {
		if err := b.wait(ctx); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.active++
	b.maxActive = max(b.maxActive, b.active)
	b.mu.Unlock()
	return nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	if b.config.MaxWait > 0 {
		wctx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
		defer cancel()
		if b.sem.Acquire(wctx, 1) == nil {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
	return ErrBulkheadFull
}

func (b *Bulkhead) release() {
	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	b.sem.Release(1)
}

// Metrics reports current and peak usage.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Available:     b.config.MaxConcurrent - b.active,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int   `json:"active"`
	MaxActive     int   `json:"max_active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected      int64 `json:"rejected"`
}
