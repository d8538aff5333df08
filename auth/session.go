package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonwraymond/storeadmin/form"
	"github.com/jonwraymond/storeadmin/observe"
)

// Resetter drops cached server state. *cache.Executor implements it.
type Resetter interface {
	Reset(ctx context.Context)
}

// Session holds the signed-in administrator's tokens.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Token implements rest.TokenSource: "" while logged out,
//     ErrTokenExpired once the access token has expired.
type Session struct {
	auth   Authenticator
	reset  Resetter
	logger observe.Logger
	now    func() time.Time

	mu       sync.RWMutex
	tokens   Tokens
	identity *Identity
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithResetter sets what Logout clears.
func WithResetter(r Resetter) SessionOption {
	return func(s *Session) { s.reset = r }
}

// WithLogger sets the session logger.
func WithLogger(l observe.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates a logged-out session.
func NewSession(auth Authenticator, opts ...SessionOption) *Session {
	s := &Session{auth: auth, logger: observe.NopLogger(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates the form and logs in with email and password. Invalid
// input is a *form.ValidationError and nothing is sent.
func (s *Session) Login(ctx context.Context, f form.Login) (*Identity, error) {
	f = f.Normalize()
	if err := form.ValidateLogin(f); err != nil {
		return nil, err
	}
	return s.LoginWith(ctx, &Credentials{Provider: ProviderPassword, Email: f.Email, Password: f.Password})
}

// LoginProvider logs in through a social provider.
func (s *Session) LoginProvider(ctx context.Context, provider string) (*Identity, error) {
	return s.LoginWith(ctx, &Credentials{Provider: provider})
}

// LoginWith replaces the current session. A failed attempt leaves the
// session logged out. Cached data is reset unless the same principal signs
// in again.
func (s *Session) LoginWith(ctx context.Context, creds *Credentials) (*Identity, error) {
	if s.auth == nil {
		return nil, fmt.Errorf("%w: no authenticator", ErrUnsupportedProvider)
	}
	previous := s.clear()
	id, err := s.authenticate(ctx, creds)
	if previous != nil && s.reset != nil && (id == nil || id.Principal != previous.Principal) {
		s.reset.Reset(ctx)
	}
	return id, err
}

func (s *Session) authenticate(ctx context.Context, creds *Credentials) (*Identity, error) {
	result, err := s.auth.Authenticate(ctx, creds)
	if err != nil {
		s.logger.Warn(ctx, "login failed",
			observe.Field{Key: "provider", Value: creds.ProviderName()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, err
	}
	if !result.Authenticated {
		if result.Error == nil {
			result.Error = ErrInvalidCredentials
		}
		s.logger.Info(ctx, "login rejected",
			observe.Field{Key: "provider", Value: creds.ProviderName()},
			observe.Field{Key: "error", Value: result.Error.Error()},
		)
		return nil, result.Error
	}

	id := result.Identity
	if id.ExpiredAt(s.now()) {
		return nil, ErrTokenExpired
	}

	s.mu.Lock()
	s.tokens = result.Tokens
	s.identity = id
	s.mu.Unlock()

	s.logger.Info(ctx, "logged in",
		observe.Field{Key: "principal", Value: id.Principal},
		observe.Field{Key: "provider", Value: id.Provider},
	)
	return id, nil
}

// Logout clears the tokens and all cached server state.
func (s *Session) Logout(ctx context.Context) {
	previous := s.clear()
	if s.reset != nil {
		s.reset.Reset(ctx)
	}
	if previous != nil {
		s.logger.Info(ctx, "logged out", observe.Field{Key: "principal", Value: previous.Principal})
	}
}

func (s *Session) clear() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.identity
	s.tokens = Tokens{}
	s.identity = nil
	return previous
}

// Token returns the access token.
func (s *Session) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens.AccessToken == "" {
		return "", nil
	}
	if s.identity != nil && s.identity.ExpiredAt(s.now()) {
		return "", ErrTokenExpired
	}
	return s.tokens.AccessToken, nil
}

// Identity returns the signed-in identity, or nil.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// LoggedIn reports whether a token is held, expired or not.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken != ""
}

// ExpiresIn returns the time left on the access token. ok is false when
// logged out or when the token carries no expiry.
func (s *Session) ExpiresIn() (d time.Duration, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil || s.identity.ExpiresAt.IsZero() {
		return 0, false
	}
	return s.identity.ExpiresAt.Sub(s.now()), true
}

// SessionState is the persisted form of a session.
type SessionState struct {
	Tokens   Tokens    `json:"tokens"`
	Identity *Identity `json:"identity,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{Tokens: s.tokens, Identity: s.identity}
}

// Restore replaces the current state.
func (s *Session) Restore(st SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = st.Tokens
	s.identity = st.Identity
}

// Save writes the session to path, readable by the owner only. A logged-out
// session removes the file.
func (s *Session) Save(path string) error {
	st := s.Snapshot()
	if st.Tokens.AccessToken == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("auth: remove session: %w", err)
		}
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("auth: session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("auth: write session: %w", err)
	}
	return nil
}

// Load restores the session from path. A missing file leaves it logged out.
func (s *Session) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth: read session: %w", err)
	}
	var st SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("auth: decode session: %w", err)
	}
	s.Restore(st)
	return nil
}
