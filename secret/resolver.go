package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands ${VAR} references and secretref:<provider>:<ref>
// references in configuration values.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. In strict mode a secret that resolves to
// "" is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider, replacing one with the same name.
func (r *Resolver) Register(p Provider) {
	if p != nil {
		r.providers[p.Name()] = p
	}
}

// ResolveValue expands environment references first, then secret
// references. A value that is one whole reference resolves to the secret;
// references embedded in text are replaced in place.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.lookup(ctx, name, ref)
	}
	return r.resolveEmbedded(ctx, expanded)
}

// ResolveAll resolves each target in place. Errors name the failing key.
func (r *Resolver) ResolveAll(ctx context.Context, targets map[string]*string) error {
	var errs []error
	for key, p := range targets {
		if p == nil || *p == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*p = v
	}
	return errors.Join(errs...)
}

// ResolveMap resolves every value of input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// Close closes every provider.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef splits "secretref:<provider>:<ref>".
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) lookup(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmpty, name, ref)
	}
	return v, nil
}

var embeddedRefPattern = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

func (r *Resolver) resolveEmbedded(ctx context.Context, value string) (string, error) {
	var firstErr error
	out := embeddedRefPattern.ReplaceAllStringFunc(value, func(m string) string {
		if firstErr != nil {
			return m
		}
		name, ref, _ := ParseSecretRef(m)
		v, err := r.lookup(ctx, name, ref)
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
