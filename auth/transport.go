package auth

import (
	"net/http"

	"github.com/jonwraymond/storeadmin/rest"
)

// Transport is an http.RoundTripper that attaches the session's bearer
// token. Requests that already carry an Authorization header pass through
// untouched, as do requests made while logged out.
//
// Usage:
//
//	hc := &http.Client{Transport: auth.NewTransport(session, nil)}
type Transport struct {
	Source rest.TokenSource
	Base   http.RoundTripper
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(source rest.TokenSource, base http.RoundTripper) *Transport {
	return &Transport{Source: source, Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Source == nil || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	token, err := t.Source.Token(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	if token == "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}

var _ rest.TokenSource = (*Session)(nil)
