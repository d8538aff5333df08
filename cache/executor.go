package cache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/storeadmin/observe"
)

// maxLoadRounds bounds how often a read retries when the result it waited on
// was invalidated while in flight.
const maxLoadRounds = 3

// Stats holds executor counters.
type Stats struct {
	Hits          int64      `json:"hits"`
	Misses        int64      `json:"misses"`
	Shared        int64      `json:"shared"`
	Requests      int64      `json:"requests"`
	Refetches     int64      `json:"refetches"`
	Invalidations int64      `json:"invalidations"`
	Store         StoreStats `json:"store"`
}

// Executor runs query and mutation endpoints against a Store.
//
// Contract:
//   - Coalescing: at most one request per cache key is in flight; concurrent
//     callers share its result.
//   - Cancellation: a caller's context only bounds how long it waits. The
//     shared request runs detached from it.
//   - Concurrency: safe for concurrent use.
type Executor struct {
	store   *Store
	keyer   Keyer
	logger  observe.Logger
	flights singleflight.Group
	bg      errgroup.Group

	hits          atomic.Int64
	misses        atomic.Int64
	shared        atomic.Int64
	requests      atomic.Int64
	refetches     atomic.Int64
	invalidations atomic.Int64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithKeyer sets the keyer used to derive cache keys.
func WithKeyer(k Keyer) ExecutorOption {
	return func(e *Executor) {
		if k != nil {
			e.keyer = k
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(l observe.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor over store. A nil store gets a store with
// DefaultPolicy.
func NewExecutor(store *Store, opts ...ExecutorOption) *Executor {
	if store == nil {
		store = NewStore(DefaultPolicy())
	}
	e := &Executor{
		store:  store,
		keyer:  NewDefaultKeyer(),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Executor) Store() *Store {
	return e.store
}

// Keyer returns the executor's keyer.
func (e *Executor) Keyer() Keyer {
	return e.keyer
}

// Invalidate marks entries carrying any of tags as stale and refetches the
// subscribed ones in the background. It returns the number of stale entries.
func (e *Executor) Invalidate(ctx context.Context, tags ...Tag) int {
	inv := e.store.Invalidate(tags...)
	if len(inv.Stale) == 0 {
		return 0
	}
	e.invalidations.Add(int64(len(inv.Stale)))

	e.logger.Debug(ctx, "cache entries invalidated",
		observe.Field{Key: "tags", Value: tagStrings(tags)},
		observe.Field{Key: "stale", Value: len(inv.Stale)},
		observe.Field{Key: "refetch", Value: len(inv.Refetch)},
	)

	for _, key := range inv.Refetch {
		e.refetchInBackground(key)
	}
	return len(inv.Stale)
}

// Reset performs a full invalidation: unreferenced entries are dropped and
// subscribed entries return to idle without refetching.
func (e *Executor) Reset(ctx context.Context) {
	e.store.Reset()
	e.logger.Info(ctx, "cache reset")
}

// Wait blocks until all background refetches started so far have finished.
func (e *Executor) Wait() {
	_ = e.bg.Wait()
}

// Stats returns a snapshot of executor counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Hits:          e.hits.Load(),
		Misses:        e.misses.Load(),
		Shared:        e.shared.Load(),
		Requests:      e.requests.Load(),
		Refetches:     e.refetches.Load(),
		Invalidations: e.invalidations.Load(),
		Store:         e.store.Stats(),
	}
}

// load serves key cache-first unless force is set.
func (e *Executor) load(ctx context.Context, key, endpoint string, fetch FetchFunc, force bool) (any, error) {
	if !force {
		if entry, ok := e.store.Get(key); ok && entry.Fresh() {
			e.hits.Add(1)
			return entry.Data, nil
		}
	}
	e.misses.Add(1)
	return e.refresh(ctx, key, endpoint, fetch)
}

// refresh fetches key through the in-flight request for it. When the awaited
// result was invalidated in flight, it goes around again so the caller
// observes post-invalidation data.
func (e *Executor) refresh(ctx context.Context, key, endpoint string, fetch FetchFunc) (any, error) {
	var data any
	for round := 0; round < maxLoadRounds; round++ {
		if round > 0 {
			if entry, ok := e.store.Get(key); ok && entry.Fresh() {
				return entry.Data, nil
			}
		}
		out, err := e.flight(ctx, key, endpoint, fetch)
		if err != nil {
			return nil, err
		}
		data = out.data
		if out.fresh {
			return data, nil
		}
	}
	return data, nil
}

type flightResult struct {
	data  any
	fresh bool
}

// flight joins or starts the single in-flight request for key.
func (e *Executor) flight(ctx context.Context, key, endpoint string, fetch FetchFunc) (flightResult, error) {
	detached := context.WithoutCancel(ctx)
	ch := e.flights.DoChan(key, func() (any, error) {
		return e.run(detached, key, endpoint, fetch)
	})

	select {
	case res := <-ch:
		if res.Shared {
			e.shared.Add(1)
		}
		if res.Err != nil {
			return flightResult{}, res.Err
		}
		return res.Val.(flightResult), nil
	case <-ctx.Done():
		return flightResult{}, ctx.Err()
	}
}

func (e *Executor) run(ctx context.Context, key, endpoint string, fetch FetchFunc) (flightResult, error) {
	gen := e.store.begin(key, endpoint, fetch)
	e.requests.Add(1)

	data, tags, err := fetch(ctx)
	if err != nil {
		st := e.store.reject(key, gen, err, tags)
		e.logger.Warn(ctx, "query failed",
			observe.Field{Key: "endpoint", Value: endpoint},
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		e.followUp(key, st)
		return flightResult{}, err
	}

	st := e.store.resolve(key, gen, data, tags)
	e.followUp(key, st)
	return flightResult{data: data, fresh: st.fresh}, nil
}

// followUp refetches a subscribed entry whose result went stale while in
// flight.
func (e *Executor) followUp(key string, st settled) {
	if st.present && !st.discarded && !st.fresh && st.subscribed {
		e.refetchInBackground(key)
	}
}

func (e *Executor) refetchInBackground(key string) {
	endpoint, fetch, ok := e.store.fetcher(key)
	if !ok {
		return
	}
	e.refetches.Add(1)
	e.bg.Go(func() error {
		// A follow-up scheduled from inside run may still join the finishing
		// flight; refresh goes around until the entry is fresh.
		_, _ = e.refresh(context.Background(), key, endpoint, fetch)
		return nil
	})
}

func tagStrings(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}
