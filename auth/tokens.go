package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider retrieves signing keys for token verification.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single static key.
type StaticKeyProvider struct {
	key any
}

// NewStaticKeyProvider creates a provider with a static key: an HMAC secret
// as []byte or a public key.
func NewStaticKeyProvider(key any) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key regardless of keyID.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if p.key == nil {
		return nil, ErrKeyNotFound
	}
	if b, ok := p.key.([]byte); ok && len(b) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// DecoderConfig configures a TokenDecoder.
type DecoderConfig struct {
	// KeyProvider enables signature verification. Without it tokens are
	// decoded unverified; the backend remains the authority.
	KeyProvider KeyProvider

	Issuer   string
	Audience string

	// Claim names. Defaults: "sub", "email", "roles".
	PrincipalClaim string
	EmailClaim     string
	RolesClaim     string

	// Leeway is the clock skew tolerated when verifying exp/nbf/iat.
	Leeway time.Duration
}

var signingMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "HS256", "HS384", "HS512"}

// TokenDecoder turns an access token into an Identity.
type TokenDecoder struct {
	config DecoderConfig
}

// NewTokenDecoder creates a decoder.
func NewTokenDecoder(config DecoderConfig) *TokenDecoder {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	if config.EmailClaim == "" {
		config.EmailClaim = "email"
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	return &TokenDecoder{config: config}
}

// Verifies reports whether signatures are checked.
func (d *TokenDecoder) Verifies() bool {
	return d.config.KeyProvider != nil
}

// Decode parses token and maps its claims onto an Identity. Expired tokens
// are rejected only when verifying; Session checks expiry on every use.
func (d *TokenDecoder) Decode(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	if d.Verifies() {
		opts := []jwt.ParserOption{jwt.WithValidMethods(signingMethods), jwt.WithLeeway(d.config.Leeway)}
		if d.config.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(d.config.Issuer))
		}
		if d.config.Audience != "" {
			opts = append(opts, jwt.WithAudience(d.config.Audience))
		}
		_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return d.config.KeyProvider.GetKey(ctx, kid)
		})
		if err != nil {
			return nil, mapTokenError(err)
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, mapTokenError(err)
	}

	return d.identity(claims), nil
}

func (d *TokenDecoder) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{Claims: map[string]any(claims)}
	id.Principal, _ = claims[d.config.PrincipalClaim].(string)
	id.Email, _ = claims[d.config.EmailClaim].(string)
	id.Roles = stringList(claims[d.config.RolesClaim])
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if id.Principal == "" {
		id.Principal = id.Email
	}
	return id
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, ErrKeyNotFound):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
}

// stringList accepts a JSON array of strings or a space separated string.
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// resolveIdentity decodes token for a login through provider. Opaque tokens
// are accepted when the decoder does not verify; the identity then falls
// back to subject.
func resolveIdentity(ctx context.Context, d *TokenDecoder, token, provider string, method AuthMethod, subject, email string) (*Identity, error) {
	id, err := d.Decode(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenMalformed) && !d.Verifies():
		id = &Identity{Principal: subject, Email: email}
	default:
		return nil, err
	}
	if id.Email == "" {
		id.Email = email
	}
	if id.Principal == "" {
		id.Principal = subject
	}
	id.Provider = provider
	id.Method = method
	return id, nil
}

var _ KeyProvider = (*StaticKeyProvider)(nil)
