package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonwraymond/storeadmin/auth"
	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/catalog"
	"github.com/jonwraymond/storeadmin/config"
	"github.com/jonwraymond/storeadmin/form"
	"github.com/jonwraymond/storeadmin/health"
	"github.com/jonwraymond/storeadmin/observe"
	"github.com/jonwraymond/storeadmin/resilience"
	"github.com/jonwraymond/storeadmin/rest"
)

// app is everything a command needs, wired from the configuration.
type app struct {
	cfg     *config.Config
	obs     observe.Observer
	logger  observe.Logger
	guard   *resilience.Executor
	exec    *cache.Executor
	client  *rest.Client
	session *auth.Session
	catalog *catalog.Service
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	loader, err := config.NewLoader(nil)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe(version))
	if err != nil {
		return nil, err
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	a := &app{cfg: cfg, obs: obs, logger: obs.Logger()}
	a.guard = rest.NewGuard(cfg.Guard())
	a.exec = cache.NewExecutor(cache.NewStore(cfg.Policy()), cache.WithLogger(a.logger))

	// The session is created after the client it authenticates through;
	// requests only read it once both exist.
	tokens := rest.TokenSourceFunc(func(ctx context.Context) (string, error) {
		return a.session.Token(ctx)
	})
	a.client, err = rest.NewClient(cfg.REST(),
		rest.WithGuard(a.guard),
		rest.WithMiddleware(mw),
		rest.WithLogger(a.logger),
		rest.WithTokenSource(tokens),
	)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	decoder := cfg.Decoder()
	social, err := auth.DefaultRegistry.Authenticators(cfg.Auth.Providers, decoder)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	authn := auth.NewCompositeAuthenticator(append([]auth.Authenticator{auth.NewPasswordAuthenticator(a.client, decoder)}, social...)...)
	a.session = auth.NewSession(authn, auth.WithResetter(a.exec), auth.WithLogger(a.logger))
	if err := a.session.Load(cfg.Auth.SessionFile); err != nil {
		a.logger.Warn(ctx, "ignoring unreadable session", observe.Field{Key: "error", Value: err.Error()})
	}

	a.catalog = catalog.NewService(catalog.NewAPI(a.client, a.exec),
		catalog.WithDefaults(cfg.Defaults()),
		catalog.WithLogger(a.logger),
	)
	return a, nil
}

// saveSession persists the session for the next invocation.
func (a *app) saveSession() error {
	return a.session.Save(a.cfg.Auth.SessionFile)
}

// health builds the aggregator behind the health command. The backend probe
// uses its own client so it is not short-circuited by the guard.
func (a *app) health() *health.Aggregator {
	hc := &http.Client{
		Timeout:   a.cfg.API.Timeout,
		Transport: auth.NewTransport(a.session, nil),
	}
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: a.cfg.API.Timeout})
	agg.Register(
		health.NewBackendChecker(a.cfg.API.BaseURL, hc, 0),
		health.NewSessionChecker(a.session, 0),
		health.NewGuardChecker(a.guard),
		health.NewCacheChecker(a.exec),
	)
	return agg
}

func (a *app) close(ctx context.Context) {
	a.exec.Wait()
	if err := a.obs.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown", observe.Field{Key: "error", Value: err.Error()})
	}
}

// describe renders err for the terminal: field messages for invalid input,
// the server's message for rejected requests.
func describe(err error) string {
	var ve *form.ValidationError
	if errors.As(err, &ve) {
		msgs := make([]string, len(ve.Fields))
		for i, f := range ve.Fields {
			msgs[i] = f.Field + ": " + f.Message
		}
		return strings.Join(msgs, "; ")
	}
	var pe *form.PreconditionError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		return "not logged in, run: storeadmin login"
	case errors.Is(err, auth.ErrTokenExpired):
		return "session expired, run: storeadmin login"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "backend is failing, requests are paused; try again shortly"
	}
	var se *rest.ServerError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s (HTTP %d)", se.Message, se.StatusCode)
	}
	return err.Error()
}
