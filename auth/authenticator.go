package auth

import "context"

// ProviderPassword is the email and password login.
const ProviderPassword = "password"

// Credentials is one login attempt.
type Credentials struct {
	// Provider selects the authenticator. Empty means ProviderPassword.
	Provider string
	Email    string
	Password string
}

// ProviderName returns the provider, defaulting to ProviderPassword.
func (c *Credentials) ProviderName() string {
	if c == nil || c.Provider == "" {
		return ProviderPassword
	}
	return c.Provider
}

// Tokens are the credentials the backend hands out on login.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Authenticator exchanges credentials for tokens and an identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods should honor cancellation/deadlines.
//   - Errors: Authenticate returns (nil, error) when the provider could not be
//     reached; rejected credentials are (AuthResult, nil) with Authenticated
//     false.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports returns true if this authenticator handles creds.
	Supports(ctx context.Context, creds *Credentials) bool

	// Authenticate performs the login.
	Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error)
}

// AuthResult is the result of a login attempt.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Tokens        Tokens

	// Error explains a rejection (only if Authenticated=false).
	Error error

	// Method is the provider that produced the result.
	Method string
}

// AuthSuccess creates a successful result.
func AuthSuccess(identity *Identity, tokens Tokens) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Tokens:        tokens,
		Method:        identity.Provider,
	}
}

// AuthFailure creates a failed result.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{
		Authenticated: false,
		Error:         err,
		Method:        method,
	}
}

// AuthenticatorFunc adapts ordinary functions to Authenticator.
type AuthenticatorFunc struct {
	name     string
	supports func(ctx context.Context, creds *Credentials) bool
	auth     func(ctx context.Context, creds *Credentials) (*AuthResult, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(
	name string,
	supports func(ctx context.Context, creds *Credentials) bool,
	auth func(ctx context.Context, creds *Credentials) (*AuthResult, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

// Name returns the authenticator name.
func (f *AuthenticatorFunc) Name() string {
	return f.name
}

// Supports reports whether the function handles creds.
func (f *AuthenticatorFunc) Supports(ctx context.Context, creds *Credentials) bool {
	return f.supports(ctx, creds)
}

// Authenticate calls the function.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	return f.auth(ctx, creds)
}
