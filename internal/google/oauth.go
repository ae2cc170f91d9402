package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoToken is returned when neither an access token nor a refresh token is
// available.
var ErrNoToken = errors.New("no Google OAuth token configured")

// Credentials is the Google part of a connector secret.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// OAuthConfig returns the OAuth2 configuration for the given credentials.
func OAuthConfig(creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  creds.RedirectURI,
		Scopes:       DefaultOAuthScopes,
	}
}

// TokenSource returns a refreshing token source for the stored tokens. When
// only an access token is present it is used as-is until it expires.
func TokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: creds.RefreshToken,
	}
	if creds.RefreshToken != "" {
		// Force a refresh on first use; the stored access token may be stale.
		tok.Expiry = time.Unix(1, 0)
	}

	if creds.RefreshToken == "" {
		return oauth2.StaticTokenSource(tok), nil
	}
	return OAuthConfig(creds).TokenSource(ctx, tok), nil
}

// HTTPClient returns an HTTP client that authenticates with ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

// NewHTTPClient combines TokenSource and HTTPClient.
func NewHTTPClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	ts, err := TokenSource(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build token source: %w", err)
	}
	return HTTPClient(ctx, ts), nil
}
