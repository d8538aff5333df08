package auth

import (
	"context"
	"fmt"
)

// SocialOutcome is what a social provider reports after its sign-in flow.
type SocialOutcome struct {
	Success bool
	Subject string
	Email   string
	Token   string

	// Reason explains a failure.
	Reason string
}

// SocialProvider runs a third-party sign-in. The flow itself is opaque.
type SocialProvider func(ctx context.Context) (SocialOutcome, error)

// StaticTokenProvider reports a successful sign-in with a token obtained
// out of band.
func StaticTokenProvider(token, subject, email string) SocialProvider {
	return func(context.Context) (SocialOutcome, error) {
		return SocialOutcome{Success: token != "", Subject: subject, Email: email, Token: token, Reason: "no token configured"}, nil
	}
}

// SocialAuthenticator logs in through one named social provider.
type SocialAuthenticator struct {
	name     string
	provider SocialProvider
	decoder  *TokenDecoder
}

// NewSocialAuthenticator creates an authenticator for provider name.
func NewSocialAuthenticator(name string, provider SocialProvider, decoder *TokenDecoder) *SocialAuthenticator {
	if decoder == nil {
		decoder = NewTokenDecoder(DecoderConfig{})
	}
	return &SocialAuthenticator{name: name, provider: provider, decoder: decoder}
}

// Name returns the provider name.
func (a *SocialAuthenticator) Name() string {
	return a.name
}

// Supports returns true when creds select this provider.
func (a *SocialAuthenticator) Supports(_ context.Context, creds *Credentials) bool {
	return creds != nil && creds.Provider == a.name
}

// Authenticate runs the provider flow.
func (a *SocialAuthenticator) Authenticate(ctx context.Context, _ *Credentials) (*AuthResult, error) {
	out, err := a.provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: %s sign-in: %w", a.name, err)
	}
	if !out.Success {
		reason := out.Reason
		if reason == "" {
			reason = "sign-in failed"
		}
		return AuthFailure(fmt.Errorf("%w: %s: %s", ErrInvalidCredentials, a.name, reason), a.name), nil
	}
	if out.Token == "" {
		return AuthFailure(fmt.Errorf("%w: %s returned no token", ErrMissingCredentials, a.name), a.name), nil
	}

	subject := out.Subject
	if subject == "" {
		subject = out.Email
	}
	id, err := resolveIdentity(ctx, a.decoder, out.Token, a.name, AuthMethodSocial, subject, out.Email)
	if err != nil {
		return AuthFailure(err, a.name), nil
	}
	return AuthSuccess(id, Tokens{AccessToken: out.Token}), nil
}

var _ Authenticator = (*SocialAuthenticator)(nil)
