package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// JWKSConfig configures the JWKS key provider.
type JWKSConfig struct {
	// URL is the JWKS endpoint URL.
	URL string

	// CacheTTL is how long fetched keys are trusted before a refresh.
	// Default: 1 hour
	CacheTTL time.Duration

	// HTTPClient is used for fetches. Default: a client with a 10s timeout.
	HTTPClient *http.Client
}

// JWKSKeyProvider retrieves RSA signing keys from a JWKS endpoint.
//
// Concurrent lookups that miss share one fetch. When a fetch fails, keys from
// earlier fetches keep serving.
type JWKSKeyProvider struct {
	config JWKSConfig

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	known     map[string]*rsa.PublicKey

	fetches singleflight.Group
}

// NewJWKSKeyProvider creates a new JWKS key provider.
func NewJWKSKeyProvider(config JWKSConfig) *JWKSKeyProvider {
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSKeyProvider{
		config: config,
		keys:   make(map[string]*rsa.PublicKey),
		known:  make(map[string]*rsa.PublicKey),
	}
}

// GetKey returns the key for keyID. An empty keyID matches any key.
func (p *JWKSKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	p.mu.RLock()
	fresh := time.Since(p.fetchedAt) < p.config.CacheTTL
	key := lookup(p.keys, keyID)
	p.mu.RUnlock()
	if fresh && key != nil {
		return key, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The fetch is shared, so it must not die with the first caller.
	ch := p.fetches.DoChan("jwks", func() (any, error) {
		return nil, p.refresh(context.WithoutCancel(ctx))
	})
	var err error
	select {
	case res := <-ch:
		err = res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if key := lookup(p.keys, keyID); key != nil {
		return key, nil
	}
	if key := lookup(p.known, keyID); key != nil {
		return key, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, keyID)
}

func lookup(keys map[string]*rsa.PublicKey, keyID string) *rsa.PublicKey {
	if keyID != "" {
		return keys[keyID]
	}
	for _, key := range keys {
		return key
	}
	return nil
}

func (p *JWKSKeyProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("auth: jwks request: %w", err)
	}
	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: fetch jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: fetch jwks: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("auth: read jwks: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("auth: decode jwks: invalid json")
	}

	keys := make(map[string]*rsa.PublicKey)
	gjson.GetBytes(body, "keys").ForEach(func(_, jwk gjson.Result) bool {
		if jwk.Get("kty").String() != "RSA" {
			return true
		}
		if use := jwk.Get("use").String(); use != "" && use != "sig" {
			return true
		}
		if key, err := parseRSAPublicKey(jwk.Get("n").String(), jwk.Get("e").String()); err == nil {
			keys[jwk.Get("kid").String()] = key
		}
		return true
	})

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = time.Now()
	for kid, key := range keys {
		p.known[kid] = key
	}
	p.mu.Unlock()
	return nil
}

func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	if n == "" || e == "" {
		return nil, fmt.Errorf("auth: jwk missing modulus or exponent")
	}
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("auth: decode n: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("auth: decode e: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() < 2 {
		return nil, fmt.Errorf("auth: bad exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)
