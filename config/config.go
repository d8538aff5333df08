package config

import (
	"time"

	"github.com/jonwraymond/storeadmin/auth"
	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/catalog"
	"github.com/jonwraymond/storeadmin/observe"
	"github.com/jonwraymond/storeadmin/resilience"
	"github.com/jonwraymond/storeadmin/rest"
)

// Config is the storeadmin configuration file.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig describes the backend and the guard around requests to it.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	RateLimit     float64       `yaml:"rate_limit"`
	Burst         int           `yaml:"burst"`
	WaitOnLimit   bool          `yaml:"wait_on_limit"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxFailures      int           `yaml:"max_failures"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	HalfOpenRequests int           `yaml:"half_open_requests"`
}

type CacheConfig struct {
	KeepUnusedFor    time.Duration `yaml:"keep_unused_for"`
	MaxUnused        int           `yaml:"max_unused"`
	KeepStaleOnError bool          `yaml:"keep_stale_on_error"`
}

// AuthConfig holds login credentials and token verification settings.
// Email and Password are optional; the login command prompts for missing
// values.
type AuthConfig struct {
	Email       string                    `yaml:"email"`
	Password    string                    `yaml:"password"`
	Providers   map[string]map[string]any `yaml:"providers"`
	JWKSURL     string                    `yaml:"jwks_url"`
	SigningKey  string                    `yaml:"signing_key"`
	Issuer      string                    `yaml:"issuer"`
	Audience    string                    `yaml:"audience"`
	SessionFile string                    `yaml:"session_file"`
}

type CatalogConfig struct {
	CategoryUUID string `yaml:"category_uuid"`
	SupplierUUID string `yaml:"supplier_uuid"`
	BrandUUID    string `yaml:"brand_uuid"`
	PageSize     int    `yaml:"page_size"`
}

type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type TelemetryConfig struct {
	ServiceName string        `yaml:"service_name"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
}

type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	d := catalog.StandardDefaults()
	return &Config{
		API: APIConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "storeadmin",
			MaxConcurrent: 8,
			RateLimit:     20,
			Burst:         10,
			Breaker: BreakerConfig{
				MaxFailures:      5,
				ResetTimeout:     30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Cache: CacheConfig{
			KeepUnusedFor:    60 * time.Second,
			MaxUnused:        1000,
			KeepStaleOnError: true,
		},
		Auth: AuthConfig{SessionFile: DefaultSessionFile()},
		Catalog: CatalogConfig{
			CategoryUUID: d.CategoryUUID,
			SupplierUUID: d.SupplierUUID,
			BrandUUID:    d.BrandUUID,
			PageSize:     catalog.DefaultPageSize,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "storeadmin",
			Tracing:     TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     MetricsConfig{Exporter: "none"},
		},
	}
}

// REST returns the HTTP client configuration.
func (c *Config) REST() rest.Config {
	return rest.Config{BaseURL: c.API.BaseURL, Timeout: c.API.Timeout, UserAgent: c.API.UserAgent}
}

// Guard returns the request guard configuration.
func (c *Config) Guard() resilience.Config {
	return resilience.Config{
		Timeout:       c.API.Timeout,
		MaxConcurrent: c.API.MaxConcurrent,
		RateLimit:     c.API.RateLimit,
		Burst:         c.API.Burst,
		WaitOnLimit:   c.API.WaitOnLimit,
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures:         c.API.Breaker.MaxFailures,
			ResetTimeout:        c.API.Breaker.ResetTimeout,
			HalfOpenMaxRequests: c.API.Breaker.HalfOpenRequests,
		},
	}
}

// Policy returns the cache retention policy.
func (c *Config) Policy() cache.Policy {
	return cache.Policy{
		KeepUnusedFor:    c.Cache.KeepUnusedFor,
		MaxUnused:        c.Cache.MaxUnused,
		KeepStaleOnError: c.Cache.KeepStaleOnError,
	}
}

// Defaults returns the catalog defaults for created products.
func (c *Config) Defaults() catalog.Defaults {
	return catalog.Defaults{
		CategoryUUID: c.Catalog.CategoryUUID,
		SupplierUUID: c.Catalog.SupplierUUID,
		BrandUUID:    c.Catalog.BrandUUID,
	}
}

// Observe returns the telemetry configuration.
func (c *Config) Observe(version string) observe.Config {
	return observe.Config{
		ServiceName: c.Telemetry.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.Tracing.Enabled,
			Exporter:  c.Telemetry.Tracing.Exporter,
			SamplePct: c.Telemetry.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.Metrics.Enabled,
			Exporter: c.Telemetry.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled:    c.Logging.Enabled,
			Level:      c.Logging.Level,
			File:       c.Logging.File,
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		},
	}
}

// Decoder returns the access token decoder. Tokens are verified against the
// JWKS endpoint or the signing key when one is configured.
func (c *Config) Decoder() *auth.TokenDecoder {
	dc := auth.DecoderConfig{Issuer: c.Auth.Issuer, Audience: c.Auth.Audience}
	switch {
	case c.Auth.JWKSURL != "":
		dc.KeyProvider = auth.NewJWKSKeyProvider(auth.JWKSConfig{URL: c.Auth.JWKSURL})
	case c.Auth.SigningKey != "":
		dc.KeyProvider = auth.NewStaticKeyProvider([]byte(c.Auth.SigningKey))
	}
	return auth.NewTokenDecoder(dc)
}
