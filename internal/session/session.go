// Package session holds the bearer credential the document gateway attaches
// to its requests. The credential is passed in explicitly at construction
// time; nothing in this program reads it from ambient state.
package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var sessionLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sessionLogger = l
}

var ErrNoToken = errors.New("no session token stored")

// TokenSource supplies the bearer credential for document-API calls and
// accepts eviction when the API signals the credential is no longer valid.
type TokenSource interface {
	Token() (string, error)
	Evict() error
}

// StaticToken is a fixed credential, used when the token comes from the
// environment. Evict is a no-op since there is nothing to clear.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

func (s StaticToken) Evict() error { return nil }

// FileStore persists the token in a single file so a login survives across
// invocations.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Token() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", err
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(token+"\n"), 0o600)
}

func (f *FileStore) Evict() error {
	sessionLogger.Info().Str("path", f.path).Msg("Evicting stored session token")
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
