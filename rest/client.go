package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/storeadmin/observe"
	"github.com/jonwraymond/storeadmin/resilience"
)

const maxResponseBytes = 10 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, for example https://api.shop.test/api/v1.
	BaseURL string

	// Timeout bounds each request when no guard is configured.
	// Default: 30 seconds
	Timeout time.Duration

	// UserAgent is sent with every request.
	// Default: "storeadmin"
	UserAgent string
}

// TokenSource supplies the bearer token for outgoing requests. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Client talks JSON to the storefront backend. Every request goes through
// the observe middleware and, when configured, the resilience guard.
// Nothing is retried.
type Client struct {
	base       *url.URL
	userAgent  string
	httpClient *http.Client
	guard      *resilience.Executor
	middleware *observe.Middleware
	logger     observe.Logger
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithGuard sends every request through g.
func WithGuard(g *resilience.Executor) Option {
	return func(c *Client) { c.guard = g }
}

// WithMiddleware instruments every request with m.
func WithMiddleware(m *observe.Middleware) Option {
	return func(c *Client) { c.middleware = m }
}

// WithLogger sets the client logger.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenSource attaches a bearer token to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "storeadmin"
	}

	c := &Client{
		base:      base,
		userAgent: cfg.UserAgent,
		logger:    observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if c.middleware == nil {
		c.middleware = observe.NewMiddleware(nil, nil, c.logger)
	}
	return c, nil
}

// NewGuard builds a resilience executor whose circuit breaker counts only
// IsTransient failures, so 4xx responses never open the circuit.
func NewGuard(cfg resilience.Config) *resilience.Executor {
	if cfg.Breaker.IsFailure == nil {
		cfg.Breaker.IsFailure = IsTransient
	}
	return resilience.NewExecutorFromConfig(cfg)
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Request is one backend call.
type Request struct {
	// Name identifies the endpoint in logs, spans and metrics.
	Name string

	Method string

	// Route is the path template, such as /products/{id}. Params fill its
	// placeholders in order. The template, not the expanded path, labels
	// telemetry.
	Route  string
	Params []string

	Query  url.Values
	Header http.Header

	// Body is encoded as JSON unless the request was built by Upload.
	Body any

	payload     []byte
	contentType string
}

// Do sends req and decodes a 2xx JSON response into out (which may be nil).
// Failures are a *NetworkError or *ServerError; a token source error is
// returned as is.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	target, err := c.url(req)
	if err != nil {
		return err
	}

	payload, contentType := req.payload, req.contentType
	if payload == nil && req.Body != nil {
		if payload, err = json.Marshal(req.Body); err != nil {
			return fmt.Errorf("rest: encode %s body: %w", req.Name, err)
		}
		contentType = "application/json"
	}

	var token string
	if c.tokens != nil {
		if token, err = c.tokens.Token(ctx); err != nil {
			return err
		}
	}

	op := observe.Operation{Name: req.Name, Method: req.Method, Route: req.Route}
	send := c.middleware.Wrap(func(ctx context.Context, op observe.Operation) (int, error) {
		var status int
		call := func(ctx context.Context) error {
			var err error
			status, err = c.send(ctx, req, target, payload, contentType, token, out)
			return err
		}
		if c.guard == nil {
			return status, call(ctx)
		}
		err := c.guard.Execute(ctx, call)
		return status, err
	})

	_, err = send(ctx, op)
	return c.normalize(ctx, req, target, err)
}

func (c *Client) send(ctx context.Context, req *Request, target string, payload []byte, contentType, token string, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return 0, fmt.Errorf("rest: create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return 0, &NetworkError{Method: req.Method, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &NetworkError{Method: req.Method, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newServerError(resp.StatusCode, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %s: %w", ErrDecode, req.Name, err)
		}
	}
	return resp.StatusCode, nil
}

// normalize maps guard errors onto NetworkError. Server and decode errors
// pass through.
func (c *Client) normalize(ctx context.Context, req *Request, target string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, resilience.ErrTimeout) || resilience.IsRejection(err) {
		if resilience.IsRejection(err) {
			c.logger.Warn(ctx, "request rejected",
				observe.Field{Key: "endpoint", Value: req.Name},
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
		return &NetworkError{Method: req.Method, URL: target, Err: err}
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne
	}
	return err
}

func (c *Client) url(req *Request) (string, error) {
	escaped := make([]string, len(req.Params))
	for i, p := range req.Params {
		escaped[i] = url.PathEscape(p)
	}
	path, err := ExpandRoute(req.Route, escaped...)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(c.base.String() + path)
	if err != nil {
		return "", fmt.Errorf("rest: build URL for %s: %w", req.Name, err)
	}
	u.RawQuery = req.Query.Encode()
	return u.String(), nil
}

// ExpandRoute fills the {name} placeholders of route with params, in order.
func ExpandRoute(route string, params ...string) (string, error) {
	var b strings.Builder
	rest := route
	used := 0
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unclosed placeholder in %q", ErrRouteParams, route)
		}
		if used >= len(params) {
			return "", fmt.Errorf("%w: %q needs more than %d", ErrRouteParams, route, len(params))
		}
		b.WriteString(rest[:open])
		b.WriteString(params[used])
		used++
		rest = rest[open+end+1:]
	}
	if used != len(params) {
		return "", fmt.Errorf("%w: %q takes %d, got %d", ErrRouteParams, route, used, len(params))
	}
	return b.String(), nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, name, route string, query url.Values, out any, params ...string) error {
	return c.Do(ctx, &Request{Name: name, Method: http.MethodGet, Route: route, Params: params, Query: query}, out)
}

// Post sends body as JSON with POST.
func (c *Client) Post(ctx context.Context, name, route string, body, out any, params ...string) error {
	return c.Do(ctx, &Request{Name: name, Method: http.MethodPost, Route: route, Params: params, Body: body}, out)
}

// Put sends body as JSON with PUT.
func (c *Client) Put(ctx context.Context, name, route string, body, out any, params ...string) error {
	return c.Do(ctx, &Request{Name: name, Method: http.MethodPut, Route: route, Params: params, Body: body}, out)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, name, route string, out any, params ...string) error {
	return c.Do(ctx, &Request{Name: name, Method: http.MethodDelete, Route: route, Params: params}, out)
}
