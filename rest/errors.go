package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonwraymond/storeadmin/resilience"
	"github.com/tidwall/gjson"
)

var (
	// ErrBaseURL is returned by NewClient for a missing or relative base URL.
	ErrBaseURL = errors.New("rest: base URL must be absolute")

	// ErrDecode is returned when a 2xx response body cannot be decoded.
	ErrDecode = errors.New("rest: decode response")

	// ErrRouteParams is returned when a route template and its parameters
	// do not match.
	ErrRouteParams = errors.New("rest: route parameters do not match template")
)

// NetworkError means the request did not produce a response: the transport
// failed, the request timed out, or a guard rejected it before sending.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("rest: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, resilience.ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Rejected reports whether a guard refused to send the request.
func (e *NetworkError) Rejected() bool {
	return resilience.IsRejection(e.Err)
}

// ServerError is a non-2xx response.
type ServerError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("rest: server returned %d: %s", e.StatusCode, e.Message)
}

// messagePaths are tried in order against an error body.
var messagePaths = []string{"message", "error.message", "error", "detail", "title", "errors.0.message"}

// newServerError extracts the server's message from body, falling back to
// the status text.
func newServerError(status int, body []byte) *ServerError {
	e := &ServerError{StatusCode: status, Body: body}
	if gjson.ValidBytes(body) {
		for _, path := range messagePaths {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				e.Message = r.Str
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// IsTransient reports whether err says something about backend health: a
// network failure or a 5xx. Client errors and caller cancellation do not.
// It is the circuit breaker's failure predicate.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return !ne.Rejected()
	}
	return errors.Is(err, resilience.ErrTimeout)
}

// Message returns the text to show a user for err. Server messages are
// preferred; fallback is used for anything else.
func Message(err error, fallback string) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
