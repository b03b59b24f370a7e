package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	tomlrepo "github.com/bnema/gemini-live-cli/internal/adapters/repo/toml"
	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	FileName = "credentials.toml"

	secretFileMode       = 0o600
	currentKeyringFormat = 1
)

// Store keeps secrets in a single private TOML file. It is the fallback when
// pass is not installed.
type Store struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

type keyringSchema struct {
	Version int               `toml:"version"`
	Secrets map[string]string `toml:"secrets"`
}

func NewStore(dir string) *Store {
	path := filepath.Join(filepath.Clean(dir), FileName)
	return &Store{path: path, mu: tomlrepo.LockForPath(path)}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keyring, err := s.read()
	if err != nil {
		return err
	}
	keyring.Secrets[key] = value

	return s.write(keyring)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keyring, err := s.read()
	if err != nil {
		return "", err
	}
	value, ok := keyring.Secrets[key]
	if !ok {
		return "", fmt.Errorf("file secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return value, nil
}

// Delete is idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keyring, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := keyring.Secrets[key]; !ok {
		return nil
	}
	delete(keyring.Secrets, key)

	return s.write(keyring)
}

func (s *Store) read() (keyringSchema, error) {
	keyring := keyringSchema{Version: currentKeyringFormat, Secrets: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return keyring, nil
		}
		return keyringSchema{}, fmt.Errorf("read secrets file: %w", err)
	}

	if err := toml.Unmarshal(data, &keyring); err != nil {
		return keyringSchema{}, fmt.Errorf("decode secrets file: %w", err)
	}
	if keyring.Version > currentKeyringFormat {
		return keyringSchema{}, fmt.Errorf("unsupported secrets file version %d", keyring.Version)
	}
	if keyring.Secrets == nil {
		keyring.Secrets = map[string]string{}
	}

	return keyring, nil
}

func (s *Store) write(keyring keyringSchema) error {
	keyring.Version = currentKeyringFormat

	data, err := toml.Marshal(keyring)
	if err != nil {
		return fmt.Errorf("encode secrets file: %w", err)
	}
	if err := tomlrepo.WriteFileAtomic(s.path, data, secretFileMode); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}

	return nil
}

func normalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("secret key is empty")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("invalid secret key %q", key)
		}
	}

	return trimmed, nil
}
