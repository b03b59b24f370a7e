package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const missingEntry = "Error: glive/gemini_api_key is not in the password store."

func storeWith(run runFunc, opts ...Option) *Store {
	s := NewStore(opts...)
	s.run = run
	return s
}

func TestStorePutUsesPassInsertUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		called = true
		assert.Equal(t, []string{"insert", "-m", "-f", "glive/gemini_api_key"}, inv.args)
		assert.Equal(t, "AIza-secret\n", inv.input)
		assert.Empty(t, inv.env)
		return "", "", nil
	})

	err := store.Put(context.Background(), "gemini_api_key", "AIza-secret")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreOptionsSetPrefixAndStoreDir(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		assert.Equal(t, []string{"show", "voice/gemini_api_key"}, inv.args)
		assert.Equal(t, []string{"PASSWORD_STORE_DIR=/tmp/pass"}, inv.env)
		return "AIza\n", "", nil
	}, WithPrefix("voice/"), WithStoreDir(" /tmp/pass "))

	value, err := store.Get(context.Background(), "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "AIza", value)
}

func TestStoreDoesNotDoublePrefix(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		assert.Equal(t, []string{"show", "glive/gemini_api_key"}, inv.args)
		return "AIza\n", "", nil
	})

	_, err := store.Get(context.Background(), "glive/gemini_api_key")
	require.NoError(t, err)
}

func TestStoreGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		assert.Empty(t, inv.input)
		return "AIza-secret\r\nvoice: Puck\n", "", nil
	})

	value, err := store.Get(context.Background(), "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret", value)
}

func TestStoreGetMapsMissingEntryToNotFound(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		return "", missingEntry, errors.New("exit status 1")
	})

	_, err := store.Get(context.Background(), "gemini_api_key")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass get")
}

func TestStoreDeleteIgnoresMissingEntry(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		assert.Equal(t, []string{"rm", "-f", "glive/gemini_api_key"}, inv.args)
		return "", missingEntry, errors.New("exit status 1")
	})

	require.NoError(t, store.Delete(context.Background(), "gemini_api_key"))
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		return "", "gpg: decryption failed: No secret key", errors.New("exit status 2")
	})

	_, err := store.Get(context.Background(), "gemini_api_key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "gemini_api_key")
	assert.ErrorContains(t, err, "decryption failed")
}

func TestStoreSurfacesUnavailableCommand(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		return "", "", ErrUnavailable
	})

	_, err := store.Get(context.Background(), "gemini_api_key")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store := storeWith(func(ctx context.Context, inv invocation) (string, string, error) {
		t.Error("pass must not run")
		return "", "", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, store.Put(ctx, "gemini_api_key", "v"), context.Canceled)
}
