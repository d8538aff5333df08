package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/jonwraymond/storeadmin/auth"
	"github.com/jonwraymond/storeadmin/observe"
	"github.com/jonwraymond/storeadmin/secret"
)

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("config: invalid")

	// ErrNotFound is returned by Load for a missing file.
	ErrNotFound = errors.New("config: file not found")
)

// EnvBaseURL overrides api.base_url when set.
const EnvBaseURL = "STOREADMIN_BASE_URL"

// DefaultSessionFile is where the CLI keeps its session.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "storeadmin", "session.json")
}

// Loader reads configuration files.
type Loader struct {
	resolver *secret.Resolver
}

// NewLoader creates a loader. A nil resolver uses the env and file secret
// providers in strict mode.
func NewLoader(resolver *secret.Resolver) (*Loader, error) {
	if resolver == nil {
		var err error
		if resolver, err = secret.DefaultRegistry.Resolver(true, nil); err != nil {
			return nil, err
		}
	}
	return &Loader{resolver: resolver}, nil
}

// Load reads path. An empty path yields the defaults.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return l.finish(ctx, Default())
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return l.Parse(ctx, data)
}

// Parse decodes YAML over the defaults, resolves secrets and validates.
// Unknown keys are errors.
func (l *Loader) Parse(ctx context.Context, data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return l.finish(ctx, cfg)
}

func (l *Loader) finish(ctx context.Context, cfg *Config) (*Config, error) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.API.BaseURL = v
	}
	if err := l.resolve(ctx, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) resolve(ctx context.Context, cfg *Config) error {
	targets := map[string]*string{
		"api.base_url":      &cfg.API.BaseURL,
		"auth.email":        &cfg.Auth.Email,
		"auth.password":     &cfg.Auth.Password,
		"auth.jwks_url":     &cfg.Auth.JWKSURL,
		"auth.signing_key":  &cfg.Auth.SigningKey,
		"auth.session_file": &cfg.Auth.SessionFile,
		"logging.file":      &cfg.Logging.File,
	}
	// Only string values of provider settings can hold references.
	type setting struct {
		provider, key string
		value         *string
	}
	var settings []setting
	for name, values := range cfg.Auth.Providers {
		for key, v := range values {
			if s, ok := v.(string); ok {
				st := setting{provider: name, key: key, value: &s}
				settings = append(settings, st)
				targets["auth.providers."+name+"."+key] = st.value
			}
		}
	}
	if err := l.resolver.ResolveAll(ctx, targets); err != nil {
		return fmt.Errorf("config: resolve secrets: %w", err)
	}
	for _, st := range settings {
		cfg.Auth.Providers[st.provider][st.key] = *st.value
	}
	return nil
}

// Validate reports every problem at once; each wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.API.BaseURL == "" {
		bad("api.base_url is required (or set %s)", EnvBaseURL)
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		bad("api.base_url %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		bad("api.timeout must be positive")
	}
	if c.API.MaxConcurrent < 0 || c.API.RateLimit < 0 || c.API.Burst < 0 {
		bad("api.max_concurrent, api.rate_limit and api.burst must not be negative")
	}
	if c.API.Breaker.MaxFailures < 0 || c.API.Breaker.ResetTimeout < 0 || c.API.Breaker.HalfOpenRequests < 0 {
		bad("api.breaker values must not be negative")
	}

	if c.Cache.KeepUnusedFor < 0 || c.Cache.MaxUnused < 0 {
		bad("cache values must not be negative")
	}

	if c.Auth.JWKSURL != "" && c.Auth.SigningKey != "" {
		bad("auth.jwks_url and auth.signing_key are mutually exclusive")
	}
	known := auth.DefaultRegistry.List()
	for name := range c.Auth.Providers {
		if !slices.Contains(known, name) {
			bad("auth.providers: unknown provider %q (known: %v)", name, known)
		}
	}

	for key, id := range map[string]string{
		"catalog.category_uuid": c.Catalog.CategoryUUID,
		"catalog.supplier_uuid": c.Catalog.SupplierUUID,
		"catalog.brand_uuid":    c.Catalog.BrandUUID,
	} {
		if _, err := uuid.Parse(id); err != nil {
			bad("%s %q is not a UUID", key, id)
		}
	}
	if c.Catalog.PageSize < 1 || c.Catalog.PageSize > 100 {
		bad("catalog.page_size must be between 1 and 100")
	}

	if c.Logging.Enabled && !slices.Contains(observe.ValidLogLevels, c.Logging.Level) {
		bad("logging.level %q must be one of %v", c.Logging.Level, observe.ValidLogLevels)
	}
	if c.Telemetry.Tracing.Enabled && !slices.Contains(observe.ValidTracingExporters, c.Telemetry.Tracing.Exporter) {
		bad("telemetry.tracing.exporter %q must be one of %v", c.Telemetry.Tracing.Exporter, observe.ValidTracingExporters)
	}
	if c.Telemetry.Metrics.Enabled && !slices.Contains(observe.ValidMetricsExporters, c.Telemetry.Metrics.Exporter) {
		bad("telemetry.metrics.exporter %q must be one of %v", c.Telemetry.Metrics.Exporter, observe.ValidMetricsExporters)
	}

	// Sorting keeps the joined message stable across map iteration.
	slices.SortFunc(errs, func(a, b error) int {
		switch {
		case a.Error() < b.Error():
			return -1
		case a.Error() > b.Error():
			return 1
		}
		return 0
	})
	return errors.Join(errs...)
}
