// Package secret keeps the RPC bearer secret in the operating system's
// native keyring, with automatic fallback to a 0600 file in the
// configuration directory when no keyring service is available.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned by Get when no secret has been stored.
var ErrNotFound = errors.New("secret: not found")

const secretBytes = 32

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

// Store resolves the RPC secret from the keyring, then the fallback file.
type Store struct {
	AppName  string
	KeyField string
	file     *FileStore
	log      logger.Logger
}

// New creates a Store whose fallback file lives in configDir.
func New(configDir string, l logger.Logger) *Store {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Store{
		AppName:  "warpsched",
		KeyField: "rpc-secret",
		file:     NewFileStore(configDir),
		log:      l,
	}
}

// Get returns the stored secret.
func (s *Store) Get() (string, error) {
	v, err := keyringGet(s.AppName, s.KeyField)
	if err == nil && v != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.log.Debug("Keyring unavailable, reading secret file: %v", err)
	}
	v, ferr := s.file.Get()
	if ferr != nil {
		return "", ferr
	}
	return v, nil
}

// Ensure returns the stored secret, generating and storing a new one if
// none exists. created reports whether a new secret was generated.
func (s *Store) Ensure() (secret string, created bool, err error) {
	v, err := s.Get()
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}
	v, err = generate()
	if err != nil {
		return "", false, err
	}
	if err := s.Set(v); err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores v in the keyring, or in the fallback file if the keyring
// rejects it.
func (s *Store) Set(v string) error {
	if err := keyringSet(s.AppName, s.KeyField, v); err != nil {
		s.log.Warning("Keyring unavailable (%v), storing RPC secret in %s", err, s.file.Path())
		return s.file.Set(v)
	}
	return nil
}

// Delete removes the secret from both the keyring and the fallback file.
func (s *Store) Delete() error {
	kerr := keyringDelete(s.AppName, s.KeyField)
	if errors.Is(kerr, keyring.ErrNotFound) {
		kerr = nil
	}
	ferr := s.file.Delete()
	if errors.Is(ferr, ErrNotFound) {
		ferr = nil
	}
	return errors.Join(kerr, ferr)
}

func generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
