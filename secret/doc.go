// Package secret resolves secrets referenced from configuration.
//
// Values may contain ${VAR} environment references, expanded strictly, and
// secretref:<provider>:<ref> references. The built-in providers are env
// (secretref:env:ADMIN_PASSWORD) and file (secretref:file:/run/secrets/pw).
//
//	r, _ := secret.DefaultRegistry.Resolver(true, nil)
//	pw, err := r.ResolveValue(ctx, "secretref:env:ADMIN_PASSWORD")
package secret
