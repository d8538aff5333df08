package health

import (
	"context"
	"time"
)

// SessionState is what SessionChecker needs from a session.
// *auth.Session implements it.
type SessionState interface {
	LoggedIn() bool
	ExpiresIn() (time.Duration, bool)
}

// SessionChecker reports whether requests will carry a usable token.
type SessionChecker struct {
	session SessionState
	warn    time.Duration
}

// NewSessionChecker creates a checker that reports degraded once the token
// has less than warn left (default 5m).
func NewSessionChecker(session SessionState, warn time.Duration) *SessionChecker {
	if warn <= 0 {
		warn = 5 * time.Minute
	}
	return &SessionChecker{session: session, warn: warn}
}

func (s *SessionChecker) Name() string { return "session" }

func (s *SessionChecker) Check(context.Context) Result {
	if !s.session.LoggedIn() {
		return Degraded("not logged in")
	}
	left, ok := s.session.ExpiresIn()
	if !ok {
		return Healthy("logged in")
	}
	details := map[string]any{"expires_in": left.Round(time.Second).String()}
	switch {
	case left <= 0:
		return Unhealthy("session expired", ErrCheckFailed).WithDetails(details)
	case left < s.warn:
		return Degraded("session expires soon").WithDetails(details)
	}
	return Healthy("logged in").WithDetails(details)
}
