package auth

import (
	"errors"
	"os"
)

// ErrNotFound is returned by LoadToken when no token is stored for a server
var ErrNotFound = errors.New("no stored token")

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(serverURL, token string) error
	LoadToken(serverURL string) (string, error)
	DeleteToken(serverURL string) error
}

// StoreEnvVar selects the backend: "file" for the credentials file, anything else for the OS keyring
const StoreEnvVar = "STAFFHUB_TOKEN_STORE"

// Default returns the token store selected by the environment
func Default() TokenStore {
	if os.Getenv(StoreEnvVar) == "file" {
		return NewFileStore("")
	}
	return KeyringStore{}
}

// Token is a TokenStore bound to a single server
type Token interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

type scopedStore struct {
	store     TokenStore
	serverURL string
}

// Scoped binds store to serverURL
func Scoped(store TokenStore, serverURL string) Token {
	return &scopedStore{store: store, serverURL: serverURL}
}

func (s *scopedStore) Load() (string, error) {
	return s.store.LoadToken(s.serverURL)
}

func (s *scopedStore) Save(token string) error {
	return s.store.SaveToken(s.serverURL, token)
}

func (s *scopedStore) Delete() error {
	return s.store.DeleteToken(s.serverURL)
}
