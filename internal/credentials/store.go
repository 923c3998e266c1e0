// Package credentials stores login credentials per connection profile.
//
// Secrets are never written to disk in plaintext: the file store seals
// each entry with AES-256-GCM under a key derived from a machine
// secret (SVS_MASTER_SECRET or a generated per-user secret file).
package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/technosupport/svs-client/internal/crypto"
)

var ErrNotFound = errors.New("credentials not found for profile")

// Credentials is one username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store is the credential store contract. Implementations must not
// persist secrets in plaintext.
type Store interface {
	Get(profile string) (Credentials, error)
	Set(profile string, creds Credentials) error
	Delete(profile string) error
}

const saltSize = 16

type fileEntry struct {
	Salt string `json:"salt"` // base64
	Blob string `json:"blob"` // base64, sealed Credentials JSON
}

// FileStore keeps sealed credentials in a single JSON file keyed by
// profile name. The profile name is bound into the AAD so entries
// cannot be swapped between profiles by editing the file.
type FileStore struct {
	path   string
	secret []byte
}

// NewFileStore opens (or prepares) the store at path. The sealing
// secret comes from SVS_MASTER_SECRET when set, otherwise from a
// generated secret file next to the store.
func NewFileStore(path string) (*FileStore, error) {
	secret := []byte(os.Getenv("SVS_MASTER_SECRET"))
	if len(secret) == 0 {
		var err error
		secret, err = loadOrCreateSecret(filepath.Join(filepath.Dir(path), "secret.key"))
		if err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path, secret: secret}, nil
}

func loadOrCreateSecret(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return data, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("secret dir: %w", err)
	}
	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("secret write: %w", err)
	}
	return secret, nil
}

func (s *FileStore) load() (map[string]fileEntry, error) {
	entries := map[string]fileEntry{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("credential store read: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("credential store parse: %w", err)
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]fileEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credential store dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credential store write: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Get(profile string) (Credentials, error) {
	entries, err := s.load()
	if err != nil {
		return Credentials{}, err
	}
	entry, ok := entries[profile]
	if !ok {
		return Credentials{}, ErrNotFound
	}

	salt, err := base64.StdEncoding.DecodeString(entry.Salt)
	if err != nil {
		return Credentials{}, fmt.Errorf("credential store: bad salt: %w", err)
	}
	blob, err := base64.StdEncoding.DecodeString(entry.Blob)
	if err != nil {
		return Credentials{}, fmt.Errorf("credential store: bad blob: %w", err)
	}

	key, err := crypto.DeriveKey(s.secret, salt)
	if err != nil {
		return Credentials{}, err
	}
	plaintext, err := crypto.Open(key, blob, []byte(profile))
	if err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (s *FileStore) Set(profile string, creds Credentials) error {
	entries, err := s.load()
	if err != nil {
		return err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	key, err := crypto.DeriveKey(s.secret, salt)
	if err != nil {
		return err
	}
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	blob, err := crypto.Seal(key, plaintext, []byte(profile))
	if err != nil {
		return err
	}

	entries[profile] = fileEntry{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Blob: base64.StdEncoding.EncodeToString(blob),
	}
	return s.save(entries)
}

func (s *FileStore) Delete(profile string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[profile]; !ok {
		return nil // delete is idempotent
	}
	delete(entries, profile)
	return s.save(entries)
}
