package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/gemini-live-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/gemini-live-cli/internal/adapters/secrets/pass"
	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

// Store tries each backend in order. Reads return the first hit, writes land
// in the first backend that accepts them and deletes reach every backend.
type Store struct {
	stores []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoStores = errors.New("secret store chain is empty")

func NewStore(stores ...ports.SecretStore) (*Store, error) {
	if len(stores) == 0 {
		return nil, errNoStores
	}
	for i, store := range stores {
		if store == nil {
			return nil, fmt.Errorf("secret store %d is nil", i)
		}
	}

	return &Store{stores: stores}, nil
}

// NewPassFirstWithFileFallback prefers pass and falls back to a file under
// fileRoot when pass is missing or refuses the write.
func NewPassFirstWithFileFallback(fileRoot string, passOpts ...passstore.Option) (*Store, error) {
	return NewStore(passstore.NewStore(passOpts...), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for i, store := range s.stores {
		err := store.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if shouldSkipFallback(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d put failed: %w", i, err))
	}

	return errors.Join(errs...)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	allMissing := true
	for i, store := range s.stores {
		value, err := store.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldSkipFallback(err) {
			return "", err
		}
		if !isMissing(err) {
			allMissing = false
		}
		errs = append(errs, fmt.Errorf("backend %d get failed: %w", i, err))
	}

	if allMissing {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}
	return "", errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for i, store := range s.stores {
		err := store.Delete(ctx, key)
		if err == nil || isMissing(err) {
			continue
		}
		if shouldSkipFallback(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("backend %d delete failed: %w", i, err))
	}

	return errors.Join(errs...)
}

func isMissing(err error) bool {
	return errors.Is(err, domain.ErrSecretNotFound) || errors.Is(err, passstore.ErrUnavailable)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
