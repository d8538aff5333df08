package auth

import "errors"

// Sentinel errors for login and session handling.
var (
	ErrMissingCredentials  = errors.New("auth: missing credentials")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrTokenExpired        = errors.New("auth: token expired")
	ErrTokenMalformed      = errors.New("auth: token malformed")
	ErrKeyNotFound         = errors.New("auth: signing key not found")
	ErrUnsupportedProvider = errors.New("auth: unsupported provider")
	ErrNotLoggedIn         = errors.New("auth: not logged in")
)
