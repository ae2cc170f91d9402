// Package registry selects and builds a connector from runtime
// configuration.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/connector/gmail"
	"github.com/teemow/mailchat/internal/connector/graph"
	"github.com/teemow/mailchat/internal/connector/imapsmtp"
	"github.com/teemow/mailchat/internal/credential"
	"github.com/teemow/mailchat/internal/google"
	"github.com/teemow/mailchat/internal/instrumentation"
)

// ErrUnknownProvider is returned for a provider type no variant handles.
var ErrUnknownProvider = errors.New("unknown provider")

// SecretSource looks up a stored secret by key.
type SecretSource interface {
	Get(key string) ([]byte, error)
}

// Options describes the connector to build.
type Options struct {
	// Provider is GOOGLE, MICROSOFT or IMAP_SMTP (case-insensitive).
	Provider string
	// Secret is the JSON credential object. When empty it is read from
	// Secrets under SecretKey.
	Secret    []byte
	Secrets   SecretSource
	SecretKey string
	Metrics   *instrumentation.Metrics
}

// ParseProvider normalizes a provider name.
func ParseProvider(s string) (connector.Provider, error) {
	p := connector.Provider(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case connector.ProviderGoogle, connector.ProviderMicrosoft, connector.ProviderIMAPSMTP:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// New builds the connector variant for opts.Provider. The returned
// connector is instrumented but not yet connected.
func New(opts Options) (connector.Connector, error) {
	provider, err := ParseProvider(opts.Provider)
	if err != nil {
		return nil, err
	}

	secret := opts.Secret
	if len(secret) == 0 && opts.Secrets != nil {
		key := opts.SecretKey
		if key == "" {
			key = strings.ToLower(string(provider))
		}
		secret, err = opts.Secrets.Get(key)
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			return nil, fmt.Errorf("failed to load %s secret: %w", provider, err)
		}
	}
	if len(secret) == 0 {
		secret = []byte("{}")
	}

	var c connector.Connector
	switch provider {
	case connector.ProviderGoogle:
		var creds google.Credentials
		if err := json.Unmarshal(secret, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse %s secret: %w", provider, err)
		}
		c = gmail.New(creds)
	case connector.ProviderMicrosoft:
		var creds graph.Credentials
		if err := json.Unmarshal(secret, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse %s secret: %w", provider, err)
		}
		c = graph.New(creds)
	case connector.ProviderIMAPSMTP:
		creds := imapsmtp.Credentials{
			IMAPPort: imapsmtp.DefaultIMAPPort,
			SMTPPort: imapsmtp.DefaultSMTPPort,
			Secure:   true,
		}
		if err := json.Unmarshal(secret, &creds); err != nil {
			return nil, fmt.Errorf("failed to parse %s secret: %w", provider, err)
		}
		c = imapsmtp.New(creds)
	}

	return connector.Instrument(c, opts.Metrics), nil
}
