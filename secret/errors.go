package secret

import "errors"

var (
	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrUnknownProvider is returned for a secretref naming no registered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrNotFound is returned by providers when a reference does not resolve.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty is returned in strict mode when a secret resolves to "".
	ErrEmpty = errors.New("secret: empty value")
)
