package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/storeadmin/rest"
)

func TestTransport(t *testing.T) {
	seen := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("Authorization")
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name   string
		source rest.TokenSource
		preset string
		want   string
	}{
		{"attaches token", rest.TokenSourceFunc(func(context.Context) (string, error) { return "abc", nil }), "", "Bearer abc"},
		{"logged out", rest.TokenSourceFunc(func(context.Context) (string, error) { return "", nil }), "", ""},
		{"keeps explicit header", rest.TokenSourceFunc(func(context.Context) (string, error) { return "abc", nil }), "Basic xyz", "Basic xyz"},
		{"no source", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{Transport: NewTransport(tt.source, nil)}
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			if err != nil {
				t.Fatal(err)
			}
			if tt.preset != "" {
				req.Header.Set("Authorization", tt.preset)
			}
			resp, err := hc.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			_ = resp.Body.Close()
			if got := <-seen; got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
			if tt.preset == "" && req.Header.Get("Authorization") != "" {
				t.Error("caller's request must not be modified")
			}
		})
	}
}

func TestTransport_TokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: NewTransport(rest.TokenSourceFunc(func(context.Context) (string, error) {
		return "", ErrTokenExpired
	}), nil)}
	_, err := hc.Get(srv.URL)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Get() error = %v, want ErrTokenExpired", err)
	}
}
