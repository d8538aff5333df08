package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwksServer struct {
	*httptest.Server
	fetches atomic.Int64
	down    atomic.Bool
}

func newJWKSServer(t *testing.T, keys map[string]*rsa.PublicKey) *jwksServer {
	t.Helper()
	var jwks []map[string]string
	for kid, key := range keys {
		jwks = append(jwks, map[string]string{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	}
	jwks = append(jwks, map[string]string{"kty": "EC", "kid": "ec-1"})

	s := &jwksServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		if s.down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": jwks})
	}))
	t.Cleanup(s.Close)
	return s
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestNewJWKSKeyProvider_Defaults(t *testing.T) {
	p := NewJWKSKeyProvider(JWKSConfig{URL: "https://example.com/jwks.json"})
	if p.config.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", p.config.CacheTTL)
	}
	if p.config.HTTPClient == nil {
		t.Error("HTTPClient should default")
	}
}

func TestJWKSKeyProvider_GetKey(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})
	ctx := context.Background()

	got, err := p.GetKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	pub, ok := got.(*rsa.PublicKey)
	if !ok || pub.N.Cmp(key.N) != 0 || pub.E != key.E {
		t.Fatalf("GetKey() returned a different key")
	}

	if _, err := p.GetKey(ctx, ""); err != nil {
		t.Errorf("GetKey(\"\") error = %v", err)
	}
	if n := srv.fetches.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1 (cached)", n)
	}
}

func TestJWKSKeyProvider_UnknownKid(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	_, err := p.GetKey(context.Background(), "rotated")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey() error = %v, want ErrKeyNotFound", err)
	}
	if _, err := p.GetKey(context.Background(), "ec-1"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("non-RSA keys should be skipped, got %v", err)
	}
}

func TestJWKSKeyProvider_ServesKnownKeysWhenDown(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, CacheTTL: time.Nanosecond})
	ctx := context.Background()

	if _, err := p.GetKey(ctx, "key-1"); err != nil {
		t.Fatalf("first GetKey() error = %v", err)
	}
	srv.down.Store(true)
	time.Sleep(time.Millisecond)

	if _, err := p.GetKey(ctx, "key-1"); err != nil {
		t.Errorf("GetKey() with endpoint down error = %v", err)
	}
	if _, err := p.GetKey(ctx, "other"); err == nil {
		t.Error("unknown kid with endpoint down should fail")
	}
}

func TestJWKSKeyProvider_CanceledCaller(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.GetKey(ctx, "key-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetKey() error = %v, want context.Canceled", err)
	}
}

func TestTokenDecoder_JWKS(t *testing.T) {
	key := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PublicKey{"key-1": &key.PublicKey})
	d := NewTokenDecoder(DecoderConfig{KeyProvider: NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})})

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, adminClaims(time.Now().Add(time.Hour)))
	tok.Header["kid"] = "key-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	id, err := d.Decode(context.Background(), signed)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if id.Principal != "admin-1" {
		t.Errorf("Principal = %q", id.Principal)
	}

	forged, err := tok.SignedString(newRSAKey(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Decode(context.Background(), forged); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("forged token error = %v, want ErrInvalidCredentials", err)
	}
}
