package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/storeadmin/rest"
)

var testSecret = []byte("test-secret")

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func adminClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "admin-1",
		"email": "admin@shop.test",
		"roles": []string{"admin"},
		"exp":   exp.Unix(),
		"iat":   exp.Add(-time.Hour).Unix(),
	}
}

// loginBackend accepts one email/password pair and answers with token.
type loginBackend struct {
	*httptest.Server

	email, password string
	token           string
	status          int

	calls atomic.Int64

	mu   sync.Mutex
	auth []string
}

func newLoginBackend(t *testing.T, email, password, token string) *loginBackend {
	t.Helper()
	b := &loginBackend{email: email, password: password, token: token}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+LoginRoute, func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		b.mu.Lock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		status := b.status
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"backend unavailable"}`))
			return
		}
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Email != b.email || body.Password != b.password {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  b.token,
			"refreshToken": "refresh-1",
		})
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *loginBackend) failWith(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

func (b *loginBackend) authHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auth...)
}

func newTestClient(t *testing.T, baseURL string, opts ...rest.Option) *rest.Client {
	t.Helper()
	c, err := rest.NewClient(rest.Config{BaseURL: baseURL}, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

type countingResetter struct {
	n atomic.Int64
}

func (r *countingResetter) Reset(context.Context) { r.n.Add(1) }
