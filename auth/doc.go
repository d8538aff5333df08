// Package auth signs the administrator in and keeps the session.
//
// Credentials go to an Authenticator: PasswordAuthenticator posts email and
// password to the backend, SocialAuthenticator runs an opaque third-party
// provider, and CompositeAuthenticator picks between them by provider name.
// Social providers are created by name through a Registry.
//
// The access token is decoded into an Identity with TokenDecoder. Decoding
// is unverified unless a KeyProvider (a static key or a JWKS endpoint) is
// configured.
//
// Session holds the tokens, implements rest.TokenSource and resets the
// query cache on logout. Transport attaches the bearer token to requests
// made with a plain http.Client.
package auth
