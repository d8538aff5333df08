package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/jonwraymond/storeadmin/rest"
)

// LoginRoute is the backend's password login endpoint.
const LoginRoute = "/auth/login"

var (
	accessTokenPaths  = []string{"accessToken", "access_token", "token", "data.accessToken"}
	refreshTokenPaths = []string{"refreshToken", "refresh_token", "data.refreshToken"}
)

// PasswordAuthenticator logs in with email and password against the backend.
type PasswordAuthenticator struct {
	client  *rest.Client
	decoder *TokenDecoder
	route   string
}

// NewPasswordAuthenticator creates a password authenticator. A nil decoder
// decodes tokens unverified.
func NewPasswordAuthenticator(client *rest.Client, decoder *TokenDecoder) *PasswordAuthenticator {
	if decoder == nil {
		decoder = NewTokenDecoder(DecoderConfig{})
	}
	return &PasswordAuthenticator{client: client, decoder: decoder, route: LoginRoute}
}

// Name returns "password".
func (a *PasswordAuthenticator) Name() string {
	return ProviderPassword
}

// Supports returns true for password credentials.
func (a *PasswordAuthenticator) Supports(_ context.Context, creds *Credentials) bool {
	return creds != nil && creds.ProviderName() == ProviderPassword
}

// Authenticate posts the credentials. A 4xx answer is a failed result
// carrying the server's message; anything else that goes wrong is an error.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, creds *Credentials) (*AuthResult, error) {
	if creds == nil || creds.Email == "" || creds.Password == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	var raw json.RawMessage
	err := a.client.Do(ctx, &rest.Request{
		Name:   "login",
		Method: http.MethodPost,
		Route:  a.route,
		Body:   map[string]string{"email": creds.Email, "password": creds.Password},
	}, &raw)

	var se *rest.ServerError
	if errors.As(err, &se) && se.StatusCode < 500 {
		return AuthFailure(fmt.Errorf("%w: %s", ErrInvalidCredentials, se.Message), a.Name()), nil
	}
	if err != nil {
		return nil, err
	}

	tokens := Tokens{
		AccessToken:  firstString(raw, accessTokenPaths),
		RefreshToken: firstString(raw, refreshTokenPaths),
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response has no access token", ErrTokenMalformed)
	}

	id, err := resolveIdentity(ctx, a.decoder, tokens.AccessToken, a.Name(), AuthMethodPassword, creds.Email, creds.Email)
	if err != nil {
		return AuthFailure(err, a.Name()), nil
	}
	return AuthSuccess(id, tokens), nil
}

func firstString(raw []byte, paths []string) string {
	for _, path := range paths {
		if r := gjson.GetBytes(raw, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

var _ Authenticator = (*PasswordAuthenticator)(nil)
