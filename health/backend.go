package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ProbeRoute is the smallest product page; the backend must serve it for
// the console to be usable.
const ProbeRoute = "/products?page=0&size=1"

// BackendChecker probes the backend directly, bypassing the query cache and
// the request guard.
type BackendChecker struct {
	baseURL string
	client  *http.Client
	slow    time.Duration
}

// NewBackendChecker creates a checker against baseURL. The client should
// attach the session token; a nil client uses http.DefaultClient. Probes
// slower than slow report degraded (default 2s).
func NewBackendChecker(baseURL string, client *http.Client, slow time.Duration) *BackendChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if slow <= 0 {
		slow = 2 * time.Second
	}
	return &BackendChecker{baseURL: strings.TrimRight(baseURL, "/"), client: client, slow: slow}
}

func (b *BackendChecker) Name() string { return "backend" }

// Check fetches ProbeRoute. 401/403 answers are degraded: the backend is
// up but the session is not accepted.
func (b *BackendChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+ProbeRoute, nil)
	if err != nil {
		return Unhealthy("bad probe request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return Unhealthy("backend unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	latency := time.Since(start)

	details := map[string]any{
		"status_code": resp.StatusCode,
		"latency":     latency.Round(time.Millisecond).String(),
	}
	if total := gjson.GetBytes(body, "totalElements"); total.Exists() {
		details["products"] = total.Int()
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Degraded("backend rejected the session").WithDetails(details)
	case resp.StatusCode >= 500:
		return Unhealthy(fmt.Sprintf("backend returned %d", resp.StatusCode), ErrCheckFailed).WithDetails(details)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Degraded(fmt.Sprintf("backend returned %d", resp.StatusCode)).WithDetails(details)
	case latency > b.slow:
		return Degraded("backend is slow").WithDetails(details)
	}
	return Healthy("backend reachable").WithDetails(details)
}
