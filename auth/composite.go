package auth

import (
	"context"
	"fmt"
)

// CompositeAuthenticator dispatches credentials to the authenticators that
// support them, in order, and returns the first success.
type CompositeAuthenticator struct {
	Authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{Authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Supports returns true if any authenticator supports creds.
func (c *CompositeAuthenticator) Supports(ctx context.Context, creds *Credentials) bool {
	for _, auth := range c.Authenticators {
		if auth.Supports(ctx, creds) {
			return true
		}
	}
	return false
}

// Authenticate tries each supporting authenticator in sequence. Errors stop
// the sequence.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	var last *AuthResult
	for _, auth := range c.Authenticators {
		if !auth.Supports(ctx, creds) {
			continue
		}
		result, err := auth.Authenticate(ctx, creds)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	if last != nil {
		return last, nil
	}

	provider := ""
	if creds != nil {
		provider = creds.ProviderName()
	}
	return AuthFailure(fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider), provider), nil
}

// Providers lists the names of the wrapped authenticators.
func (c *CompositeAuthenticator) Providers() []string {
	names := make([]string, 0, len(c.Authenticators))
	for _, auth := range c.Authenticators {
		names = append(names, auth.Name())
	}
	return names
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
