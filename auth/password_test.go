package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/storeadmin/rest"
)

func TestPasswordAuthenticator(t *testing.T) {
	token := signHS256(t, adminClaims(time.Now().Add(time.Hour)))
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", token)
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), nil)
	ctx := context.Background()

	res, err := a.Authenticate(ctx, &Credentials{Email: "admin@shop.test", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !res.Authenticated {
		t.Fatalf("Authenticate() rejected: %v", res.Error)
	}
	if res.Tokens.AccessToken != token || res.Tokens.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %+v", res.Tokens)
	}
	if res.Identity.Principal != "admin-1" || res.Identity.Method != AuthMethodPassword || res.Method != ProviderPassword {
		t.Errorf("identity = %+v", res.Identity)
	}
}

func TestPasswordAuthenticator_BadCredentials(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), nil)

	res, err := a.Authenticate(context.Background(), &Credentials{Email: "admin@shop.test", Password: "wrong"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Authenticated {
		t.Fatal("wrong password accepted")
	}
	if !errors.Is(res.Error, ErrInvalidCredentials) || !strings.Contains(res.Error.Error(), "Bad credentials") {
		t.Errorf("Error = %v", res.Error)
	}
}

func TestPasswordAuthenticator_ServerError(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	backend.failWith(http.StatusBadGateway)
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), nil)

	_, err := a.Authenticate(context.Background(), &Credentials{Email: "admin@shop.test", Password: "s3cret"})
	var se *rest.ServerError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Errorf("Authenticate() error = %v, want 502 ServerError", err)
	}
}

func TestPasswordAuthenticator_OpaqueToken(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque-token")
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), nil)

	res, err := a.Authenticate(context.Background(), &Credentials{Email: "admin@shop.test", Password: "s3cret"})
	if err != nil || !res.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", res, err)
	}
	if res.Identity.Principal != "admin@shop.test" || !res.Identity.ExpiresAt.IsZero() {
		t.Errorf("identity = %+v", res.Identity)
	}
}

func TestPasswordAuthenticator_OpaqueTokenRejectedWhenVerifying(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque-token")
	d := NewTokenDecoder(DecoderConfig{KeyProvider: NewStaticKeyProvider(testSecret)})
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), d)

	res, err := a.Authenticate(context.Background(), &Credentials{Email: "admin@shop.test", Password: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Authenticated || !errors.Is(res.Error, ErrTokenMalformed) {
		t.Errorf("result = %+v", res)
	}
}

func TestPasswordAuthenticator_MissingCredentials(t *testing.T) {
	backend := newLoginBackend(t, "admin@shop.test", "s3cret", "opaque")
	a := NewPasswordAuthenticator(newTestClient(t, backend.URL), nil)

	for _, creds := range []*Credentials{nil, {Email: "admin@shop.test"}, {Password: "x"}} {
		res, err := a.Authenticate(context.Background(), creds)
		if err != nil || res.Authenticated || !errors.Is(res.Error, ErrMissingCredentials) {
			t.Errorf("Authenticate(%+v) = %+v, %v", creds, res, err)
		}
	}
	if n := backend.calls.Load(); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestPasswordAuthenticator_Supports(t *testing.T) {
	a := NewPasswordAuthenticator(nil, nil)
	ctx := context.Background()
	if !a.Supports(ctx, &Credentials{}) || !a.Supports(ctx, &Credentials{Provider: "password"}) {
		t.Error("password credentials should be supported")
	}
	if a.Supports(ctx, &Credentials{Provider: "google"}) || a.Supports(ctx, nil) {
		t.Error("other providers should not be supported")
	}
}
