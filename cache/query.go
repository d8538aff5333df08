package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// QueryDef describes a read endpoint.
type QueryDef[A, R any] struct {
	// Name identifies the endpoint; it is part of every cache key.
	Name string

	// Fetch performs the request.
	Fetch func(ctx context.Context, arg A) (R, error)

	// ProvidesTags computes the tags of a result. It is called on success
	// and on failure (with the zero R).
	ProvidesTags func(result R, err error, arg A) []Tag
}

// QueryResult is the view of a cache entry handed to query callers.
type QueryResult[R any] struct {
	Data       R
	Status     Status
	IsLoading  bool // first load, no data yet
	IsFetching bool // any request in flight
	IsSuccess  bool
	IsError    bool
	IsStale    bool
	Error      error
	UpdatedAt  time.Time
}

func resultFrom[R any](e Entry) QueryResult[R] {
	res := QueryResult[R]{
		Status:     e.Status,
		IsLoading:  e.Status == StatusLoading && !e.HasData(),
		IsFetching: e.Fetching,
		IsSuccess:  e.Status == StatusSuccess,
		IsError:    e.Status == StatusError,
		IsStale:    e.Stale,
		Error:      e.Err,
		UpdatedAt:  e.UpdatedAt,
	}
	if v, ok := e.Data.(R); ok {
		res.Data = v
	}
	return res
}

// QueryEndpoint binds a QueryDef to an Executor.
type QueryEndpoint[A, R any] struct {
	exec *Executor
	def  QueryDef[A, R]
}

// NewQuery binds def to exec.
func NewQuery[A, R any](exec *Executor, def QueryDef[A, R]) *QueryEndpoint[A, R] {
	return &QueryEndpoint[A, R]{exec: exec, def: def}
}

// Name returns the endpoint name.
func (q *QueryEndpoint[A, R]) Name() string {
	return q.def.Name
}

// Key returns the cache key for arg.
func (q *QueryEndpoint[A, R]) Key(arg A) (string, error) {
	if q.exec == nil {
		return "", ErrNilExecutor
	}
	return q.exec.keyer.Key(q.def.Name, arg)
}

// Fetch returns the result for arg, cache-first. A fresh cached success is
// returned without network access; anything else is fetched, sharing any
// request already in flight for the same key.
func (q *QueryEndpoint[A, R]) Fetch(ctx context.Context, arg A) (R, error) {
	return q.load(ctx, arg, false)
}

// Refetch fetches arg regardless of the cached state.
func (q *QueryEndpoint[A, R]) Refetch(ctx context.Context, arg A) (R, error) {
	return q.load(ctx, arg, true)
}

// Peek returns the current state for arg without any I/O.
func (q *QueryEndpoint[A, R]) Peek(arg A) QueryResult[R] {
	key, err := q.Key(arg)
	if err != nil {
		return QueryResult[R]{Status: StatusError, IsError: true, Error: err}
	}
	entry, ok := q.exec.store.Get(key)
	if !ok {
		return QueryResult[R]{Status: StatusIdle}
	}
	return resultFrom[R](entry)
}

// Subscribe calls fn with the result for arg now and on every change. If the
// entry is not fresh, a fetch starts in the background.
func (q *QueryEndpoint[A, R]) Subscribe(arg A, fn func(QueryResult[R])) (*Subscription[R], error) {
	key, err := q.Key(arg)
	if err != nil {
		return nil, err
	}
	fetch, err := q.fetchFunc(arg)
	if err != nil {
		return nil, err
	}

	sub := &Subscription[R]{}
	sub.unsubscribe = q.exec.store.Subscribe(key, q.def.Name, fetch, func(e Entry) {
		res := resultFrom[R](e)
		sub.set(res)
		if fn != nil {
			fn(res)
		}
	})
	sub.refetch = func(ctx context.Context) error {
		_, err := q.Refetch(ctx, arg)
		return err
	}

	if entry, ok := q.exec.store.Get(key); !ok || (!entry.Fresh() && !entry.Fetching) {
		q.exec.bg.Go(func() error {
			_, _ = q.exec.load(context.Background(), key, q.def.Name, fetch, false)
			return nil
		})
	}
	return sub, nil
}

func (q *QueryEndpoint[A, R]) load(ctx context.Context, arg A, force bool) (R, error) {
	var zero R
	key, err := q.Key(arg)
	if err != nil {
		return zero, err
	}
	fetch, err := q.fetchFunc(arg)
	if err != nil {
		return zero, err
	}

	data, err := q.exec.load(ctx, key, q.def.Name, fetch, force)
	if err != nil {
		return zero, err
	}
	if data == nil {
		return zero, nil
	}
	v, ok := data.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s: %T", ErrResultType, q.def.Name, data)
	}
	return v, nil
}

func (q *QueryEndpoint[A, R]) fetchFunc(arg A) (FetchFunc, error) {
	if q.def.Fetch == nil {
		return nil, ErrNoFetcher
	}
	return func(ctx context.Context) (any, []Tag, error) {
		result, err := q.def.Fetch(ctx, arg)
		var tags []Tag
		if q.def.ProvidesTags != nil {
			tags = q.def.ProvidesTags(result, err, arg)
		}
		if err != nil {
			return nil, tags, err
		}
		return result, tags, nil
	}, nil
}

// Subscription is a live reference to a query entry. While it is held the
// entry is never evicted.
type Subscription[R any] struct {
	mu          sync.Mutex
	current     QueryResult[R]
	unsubscribe func()
	refetch     func(ctx context.Context) error
}

func (s *Subscription[R]) set(res QueryResult[R]) {
	s.mu.Lock()
	s.current = res
	s.mu.Unlock()
}

// Current returns the latest result delivered to the subscription.
func (s *Subscription[R]) Current() QueryResult[R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Refetch forces a fetch of the subscribed entry.
func (s *Subscription[R]) Refetch(ctx context.Context) error {
	return s.refetch(ctx)
}

// Unsubscribe drops the reference. In-flight requests are not cancelled.
// Calling it more than once is a no-op.
func (s *Subscription[R]) Unsubscribe() {
	s.unsubscribe()
}
