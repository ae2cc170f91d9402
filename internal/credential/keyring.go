package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ServiceName is the keyring service all mailchat secrets live under.
const ServiceName = "mailchat"

// ErrNotFound is returned when no secret is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets by key.
type Store struct {
	ring keyring.Keyring
}

// Config selects the keyring backend. FileDir and FilePassword are only used
// by the encrypted file backend.
type Config struct {
	FileDir      string
	FilePassword string
}

// Open opens the system keyring, falling back to an encrypted file.
func Open(cfg Config) (*Store, error) {
	if cfg.FileDir == "" {
		cfg.FileDir = "~/.config/mailchat/credentials"
	}
	if cfg.FilePassword == "" {
		cfg.FilePassword = "mailchat-file-key"
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  cfg.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.FilePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get retrieves the secret stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}
	return item.Data, nil
}

// Set stores secret under key, replacing any previous value.
func (s *Store) Set(key string, secret []byte) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  secret,
		Label: "mailchat " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes the secret stored under key.
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
