package registry

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailchat/internal/connector"
	"github.com/teemow/mailchat/internal/credential"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    connector.Provider
		wantErr bool
	}{
		{"GOOGLE", connector.ProviderGoogle, false},
		{"microsoft", connector.ProviderMicrosoft, false},
		{" imap_smtp ", connector.ProviderIMAPSMTP, false},
		{"yahoo", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		provider connector.Provider
		wantErr  bool
	}{
		{
			name:     "google with inline secret",
			opts:     Options{Provider: "GOOGLE", Secret: []byte(`{"clientId":"c","refreshToken":"r"}`)},
			provider: connector.ProviderGoogle,
		},
		{
			name:     "microsoft without secret",
			opts:     Options{Provider: "MICROSOFT"},
			provider: connector.ProviderMicrosoft,
		},
		{
			name:     "imap",
			opts:     Options{Provider: "IMAP_SMTP", Secret: []byte(`{"imapHost":"imap.x","smtpHost":"smtp.x","user":"u","pass":"p"}`)},
			provider: connector.ProviderIMAPSMTP,
		},
		{
			name:    "bad secret json",
			opts:    Options{Provider: "GOOGLE", Secret: []byte(`{`)},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			opts:    Options{Provider: "AOL"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, c.Provider())
		})
	}
}

func TestNew_SecretFromKeyring(t *testing.T) {
	store := credential.NewStore(keyring.NewArrayKeyring([]keyring.Item{
		{Key: "microsoft", Data: []byte(`{"accessToken":"at"}`)},
	}))

	c, err := New(Options{Provider: "MICROSOFT", Secrets: store})
	require.NoError(t, err)
	assert.Equal(t, connector.ProviderMicrosoft, c.Provider())

	// A missing key is not an error; Connect reports the missing token.
	c, err = New(Options{Provider: "GOOGLE", Secrets: store})
	require.NoError(t, err)
	assert.Equal(t, connector.ProviderGoogle, c.Provider())
}

type failingSource struct{}

func (failingSource) Get(string) ([]byte, error) { return nil, errors.New("keyring locked") }

func TestNew_SecretSourceError(t *testing.T) {
	_, err := New(Options{Provider: "GOOGLE", Secrets: failingSource{}})
	assert.Error(t, err)
}
