package connector

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Sentinel kinds for connector-level failures. Match them with errors.Is.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderAuthExpired = errors.New("provider auth expired")
)

// ProviderError is a connector-level failure that aborts a sync or send for
// one provider.
type ProviderError struct {
	Provider Provider
	Kind     error
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Provider, e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Unavailable wraps err as a ProviderUnavailable failure.
func Unavailable(p Provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: p, Kind: ErrProviderUnavailable, Op: op, Err: err}
}

// AuthExpired wraps err as a ProviderAuthExpired failure.
func AuthExpired(p Provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: p, Kind: ErrProviderAuthExpired, Op: op, Err: err}
}

// Classify turns a raw transport error into a ProviderError. HTTP 401/403
// responses and OAuth2 token refresh failures map to ProviderAuthExpired,
// everything else to ProviderUnavailable. Errors that already are a
// ProviderError pass through unchanged.
func Classify(p Provider, op string, err error) error {
	if err == nil {
		return nil
	}

	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return err
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && isAuthStatus(gErr.Code) {
		return AuthExpired(p, op, err)
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return AuthExpired(p, op, err)
	}

	var sErr *StatusError
	if errors.As(err, &sErr) && isAuthStatus(sErr.StatusCode) {
		return AuthExpired(p, op, err)
	}

	return Unavailable(p, op, err)
}

// StatusError is a non-2xx HTTP response from a REST provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
