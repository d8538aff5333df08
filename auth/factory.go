package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ProviderFactory creates a social provider from configuration.
type ProviderFactory func(cfg map[string]any) (SocialProvider, error)

// Registry manages social provider factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	if name == "" || factory == nil {
		return errors.New("auth: invalid provider registration")
	}
	if name == ProviderPassword {
		return fmt.Errorf("auth: provider name %q is reserved", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("auth: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a provider by name.
func (r *Registry) Create(name string, cfg map[string]any) (SocialProvider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return factory(cfg)
}

// List returns registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authenticators builds one SocialAuthenticator per configured provider,
// sorted by name.
func (r *Registry) Authenticators(providers map[string]map[string]any, decoder *TokenDecoder) ([]Authenticator, error) {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	auths := make([]Authenticator, 0, len(names))
	for _, name := range names {
		p, err := r.Create(name, providers[name])
		if err != nil {
			return nil, err
		}
		auths = append(auths, NewSocialAuthenticator(name, p, decoder))
	}
	return auths, nil
}

// DefaultRegistry holds the built-in social providers.
var DefaultRegistry = NewRegistry()

func init() {
	for _, name := range []string{"google", "github", "facebook"} {
		_ = DefaultRegistry.Register(name, preobtainedToken)
	}
}

// preobtainedToken builds a provider from a token obtained outside this
// program, for example by a browser flow.
func preobtainedToken(cfg map[string]any) (SocialProvider, error) {
	token, _ := cfg["token"].(string)
	if token == "" {
		return nil, fmt.Errorf("%w: provider needs a token", ErrMissingCredentials)
	}
	subject, _ := cfg["subject"].(string)
	email, _ := cfg["email"].(string)
	return StaticTokenProvider(token, subject, email), nil
}
