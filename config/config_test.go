package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/catalog"
	"github.com/jonwraymond/storeadmin/resilience"
)

const sample = `
api:
  base_url: https://${STORE_HOST}/api
  timeout: 5s
  max_concurrent: 4
  breaker:
    max_failures: 3
    reset_timeout: 10s
cache:
  keep_unused_for: 2m
  max_unused: 50
auth:
  email: admin@shop.test
  password: secretref:env:STORE_ADMIN_PASSWORD
  providers:
    google:
      token: secretref:file:google.token
      subject: g-1
catalog:
  page_size: 12
logging:
  level: debug
`

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(nil)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLoader_Parse(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "google.token"), []byte("g-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORE_HOST", "shop.test")
	t.Setenv("STORE_ADMIN_PASSWORD", "s3cret")
	t.Setenv(EnvBaseURL, "")

	cfg, err := newTestLoader(t).Parse(context.Background(), []byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.API.BaseURL != "https://shop.test/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Auth.Password != "s3cret" {
		t.Errorf("Password = %q", cfg.Auth.Password)
	}
	if got := cfg.Auth.Providers["google"]["token"]; got != "g-token" {
		t.Errorf("google token = %v", got)
	}

	wantGuard := resilience.Config{
		Timeout:       5 * time.Second,
		MaxConcurrent: 4,
		RateLimit:     20,
		Burst:         10,
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:         3,
			ResetTimeout:        10 * time.Second,
			HalfOpenMaxRequests: 1,
		},
	}
	if diff := cmp.Diff(wantGuard, cfg.Guard()); diff != "" {
		t.Errorf("Guard() mismatch (-want +got):\n%s", diff)
	}
	wantPolicy := cache.Policy{KeepUnusedFor: 2 * time.Minute, MaxUnused: 50, KeepStaleOnError: true}
	if diff := cmp.Diff(wantPolicy, cfg.Policy()); diff != "" {
		t.Errorf("Policy() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(catalog.StandardDefaults(), cfg.Defaults()); diff != "" {
		t.Errorf("Defaults() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Catalog.PageSize != 12 || cfg.Logging.Level != "debug" || !cfg.Logging.Enabled {
		t.Errorf("catalog/logging = %+v %+v", cfg.Catalog, cfg.Logging)
	}
	if cfg.REST().UserAgent != "storeadmin" {
		t.Errorf("REST() = %+v", cfg.REST())
	}
	if o := cfg.Observe("v1"); o.ServiceName != "storeadmin" || o.Version != "v1" || o.Logging.Level != "debug" {
		t.Errorf("Observe() = %+v", o)
	}
	if cfg.Decoder().Verifies() {
		t.Error("no key configured; decoder should not verify")
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	tests := []struct {
		name string
		yaml string
		want error
		msg  string
	}{
		{"unknown key", "api:\n  base_url: https://x.test\n  colour: red\n", nil, "colour"},
		{"missing env", "api:\n  base_url: https://${STORE_UNSET_HOST}\n", nil, "STORE_UNSET_HOST"},
		{"no base url", "cache:\n  max_unused: 5\n", ErrInvalid, "api.base_url is required"},
		{"relative base url", "api:\n  base_url: /api\n", ErrInvalid, "absolute"},
		{"bad uuid", "api:\n  base_url: https://x.test\ncatalog:\n  brand_uuid: nope\n", ErrInvalid, "catalog.brand_uuid"},
		{"page size", "api:\n  base_url: https://x.test\ncatalog:\n  page_size: 500\n", ErrInvalid, "page_size"},
		{"both keys", "api:\n  base_url: https://x.test\nauth:\n  jwks_url: https://x.test/jwks\n  signing_key: k\n", ErrInvalid, "mutually exclusive"},
		{"unknown provider", "api:\n  base_url: https://x.test\nauth:\n  providers:\n    myspace: {token: t}\n", ErrInvalid, "myspace"},
		{"log level", "api:\n  base_url: https://x.test\nlogging:\n  level: loud\n", ErrInvalid, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(t).Parse(context.Background(), []byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://env.shop.test/api")
	l := newTestLoader(t)
	ctx := context.Background()

	cfg, err := l.Load(ctx, "")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.API.BaseURL != "https://env.shop.test/api" {
		t.Errorf("BaseURL = %q, want env override", cfg.API.BaseURL)
	}

	if _, err := l.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "storeadmin.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  signing_key: k\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = l.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Decoder().Verifies() {
		t.Error("signing_key should enable verification")
	}
}
