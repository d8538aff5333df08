package cache

import (
	"context"

	"github.com/jonwraymond/storeadmin/observe"
)

// MutationDef describes a write endpoint.
type MutationDef[A, R any] struct {
	Name string

	// Do performs the request. It is called exactly once per Execute.
	Do func(ctx context.Context, arg A) (R, error)

	// InvalidatesTags returns the tags to invalidate once Do succeeds.
	InvalidatesTags func(result R, err error, arg A) []Tag
}

// MutationEndpoint binds a MutationDef to an Executor.
type MutationEndpoint[A, R any] struct {
	exec *Executor
	def  MutationDef[A, R]
}

// NewMutation binds def to exec.
func NewMutation[A, R any](exec *Executor, def MutationDef[A, R]) *MutationEndpoint[A, R] {
	return &MutationEndpoint[A, R]{exec: exec, def: def}
}

// Name returns the endpoint name.
func (m *MutationEndpoint[A, R]) Name() string {
	return m.def.Name
}

// Execute runs the mutation. On success the tags returned by InvalidatesTags
// are invalidated before Execute returns, and subscribed queries carrying
// them are refetched in the background. A failure is returned unchanged:
// nothing is retried and nothing is invalidated.
func (m *MutationEndpoint[A, R]) Execute(ctx context.Context, arg A) (R, error) {
	var zero R
	if m.exec == nil {
		return zero, ErrNilExecutor
	}
	if m.def.Do == nil {
		return zero, ErrNoMutator
	}

	result, err := m.def.Do(ctx, arg)
	if err != nil {
		m.exec.logger.Warn(ctx, "mutation failed",
			observe.Field{Key: "endpoint", Value: m.def.Name},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return result, err
	}

	if m.def.InvalidatesTags != nil {
		if tags := m.def.InvalidatesTags(result, nil, arg); len(tags) > 0 {
			m.exec.Invalidate(ctx, tags...)
		}
	}
	return result, nil
}
