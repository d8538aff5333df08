package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how the session was established.
type AuthMethod string

const (
	AuthMethodPassword  AuthMethod = "password"
	AuthMethodSocial    AuthMethod = "social"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// Identity is the signed-in administrator.
type Identity struct {
	// Principal is the unique identifier, the token subject when there is one.
	Principal string `json:"principal"`

	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`

	// Provider is the login provider: "password", "google", "github"...
	Provider string     `json:"provider"`
	Method   AuthMethod `json:"method"`

	// Claims are the access token's claims, when it is a JWT.
	Claims map[string]any `json:"-"`

	ExpiresAt time.Time `json:"expires_at,omitzero"`
	IssuedAt  time.Time `json:"issued_at,omitzero"`
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired reports whether the identity's token has expired.
func (id *Identity) IsExpired() bool {
	return id.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the identity is expired at t.
func (id *Identity) ExpiredAt(t time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return !t.Before(id.ExpiresAt)
}

// IsAnonymous returns true if this is an anonymous identity.
func (id *Identity) IsAnonymous() bool {
	return id.Method == AuthMethodAnonymous || id.Principal == ""
}

// AnonymousIdentity creates a default anonymous identity.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    AuthMethodAnonymous,
		Claims:    make(map[string]any),
	}
}
