package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/storeadmin/form"
	"github.com/jonwraymond/storeadmin/rest"
)

func newTestSession(t *testing.T, backend *loginBackend, opts ...SessionOption) (*Session, *countingResetter) {
	t.Helper()
	r := &countingResetter{}
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), nil)
	return NewSession(a, append([]SessionOption{WithResetter(r)}, opts...)...), r
}

func TestSession_Login(t *testing.T) {
	token := signHS256(t, adminClaims(time.Now().Add(time.Hour)))
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", token)
	s, _ := newTestSession(t, backend)
	ctx := context.Background()

	if tok, err := s.Token(ctx); tok != "" || err != nil {
		t.Fatalf("Token() before login = %q, %v", tok, err)
	}

	id, err := s.Login(ctx, form.Login{Email: "  admin@shop.test ", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if id.Principal != "admin-1" || s.Identity() != id || !s.LoggedIn() {
		t.Errorf("identity = %+v", id)
	}
	tok, err := s.Token(ctx)
	if err != nil || tok != token {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if left, ok := s.ExpiresIn(); !ok || left <= 0 {
		t.Errorf("ExpiresIn() = %v, %v", left, ok)
	}
}

func TestSession_LoginValidatesFirst(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	s, _ := newTestSession(t, backend)

	tests := []struct {
		name  string
		login form.Login
		field string
		msg   string
	}{
		{"empty password", form.Login{Email: "admin@shop.test"}, "password", "password is required"},
		{"empty email", form.Login{Password: "x"}, "email", "email is required"},
		{"bad email", form.Login{Email: "nope", Password: "x"}, "email", "Invalid email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(context.Background(), tt.login)
			var ve *form.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Login() error = %v, want *form.ValidationError", err)
			}
			if got, _ := ve.Message(tt.field); got != tt.msg {
				t.Errorf("Message(%q) = %q, want %q", tt.field, got, tt.msg)
			}
		})
	}
	if n := backend.calls.Load(); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestSession_LoginRejected(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	s, _ := newTestSession(t, backend)

	_, err := s.Login(context.Background(), form.Login{Email: "admin@shop.test", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
	if s.LoggedIn() {
		t.Error("rejected login should leave the session logged out")
	}
}

func TestSession_Logout(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	s, resets := newTestSession(t, backend)
	ctx := context.Background()

	if _, err := s.Login(ctx, form.Login{Email: "admin@shop.test", Password: "s3cret"}); err != nil {
		t.Fatal(err)
	}
	s.Logout(ctx)

	if tok, err := s.Token(ctx); tok != "" || err != nil {
		t.Errorf("Token() after logout = %q, %v", tok, err)
	}
	if s.Identity() != nil {
		t.Error("identity should be cleared")
	}
	if n := resets.n.Load(); n != 1 {
		t.Errorf("resets = %d, want 1", n)
	}
}

func TestSession_RelogResetsOnlyOnPrincipalChange(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	s, resets := newTestSession(t, backend)
	ctx := context.Background()
	login := form.Login{Email: "admin@shop.test", Password: "s3cret"}

	for range 2 {
		if _, err := s.Login(ctx, login); err != nil {
			t.Fatal(err)
		}
	}
	if n := resets.n.Load(); n != 0 {
		t.Errorf("same principal: resets = %d, want 0", n)
	}

	_, _ = s.Login(ctx, form.Login{Email: "admin@shop.test", Password: "wrong"})
	if n := resets.n.Load(); n != 1 {
		t.Errorf("failed relogin: resets = %d, want 1", n)
	}
}

func TestSession_TokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", signHS256(t, adminClaims(exp)))
	now := time.Now()
	s, _ := newTestSession(t, backend, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := s.Login(ctx, form.Login{Email: "admin@shop.test", Password: "s3cret"}); err != nil {
		t.Fatal(err)
	}
	now = exp.Add(time.Second)

	if _, err := s.Token(ctx); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Token() error = %v, want ErrTokenExpired", err)
	}
	if !s.LoggedIn() {
		t.Error("an expired session is still logged in until logout")
	}
}

func TestSession_LoginWithExpiredToken(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", signHS256(t, adminClaims(time.Now().Add(-time.Minute))))
	s, _ := newTestSession(t, backend)

	_, err := s.Login(context.Background(), form.Login{Email: "admin@shop.test", Password: "s3cret"})
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Login() error = %v, want ErrTokenExpired", err)
	}
	if s.LoggedIn() {
		t.Error("session should stay logged out")
	}
}

func TestSession_AsTokenSource(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque-token")
	session, _ := newTestSession(t, backend)
	client := newTestClient(t, backend.URL, rest.WithTokenSource(session))
	ctx := context.Background()

	if _, err := session.Login(ctx, form.Login{Email: "admin@shop.test", Password: "s3cret"}); err != nil {
		t.Fatal(err)
	}
	_ = client.Post(ctx, "login", LoginRoute, map[string]string{"email": "x@y.z", "password": "p"}, nil)

	headers := backend.authHeaders()
	if len(headers) != 2 || headers[0] != "" || headers[1] != "Bearer opaque-token" {
		t.Errorf("Authorization headers = %q", headers)
	}
}

func TestSession_SaveLoad(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", signHS256(t, jwt.MapClaims{"sub": "admin-1"}))
	s, _ := newTestSession(t, backend)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "session.json")

	if err := s.Load(path); err != nil || s.LoggedIn() {
		t.Fatalf("Load() of a missing file = %v, logged in %v", err, s.LoggedIn())
	}
	if _, err := s.Login(ctx, form.Login{Email: "admin@shop.test", Password: "s3cret"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file mode = %v, want 0600", perm)
	}

	restored := NewSession(nil)
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tok, _ := restored.Token(ctx); tok == "" || restored.Identity().Principal != "admin-1" {
		t.Errorf("restored session = %+v", restored.Snapshot())
	}

	restored.Logout(ctx)
	if err := restored.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("logged-out Save should remove the file, stat err = %v", err)
	}
}

func TestSession_NoAuthenticator(t *testing.T) {
	_, err := NewSession(nil).LoginProvider(context.Background(), "google")
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("LoginProvider() error = %v", err)
	}
}
