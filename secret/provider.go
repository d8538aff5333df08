package secret

import "context"

// Provider resolves secret references for one scheme, as in
// "secretref:<name>:<ref>".
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: unknown refs return an error wrapping ErrNotFound.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}
