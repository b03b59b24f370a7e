package webui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeySource(t *testing.T, handler http.HandlerFunc) *APIKeySource {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "token-123")
	client.HTTPClient = server.Client()
	return NewAPIKeySource(client)
}

func TestAPIKeySourceReturnsKeyAndVoice(t *testing.T) {
	t.Parallel()

	source := newTestKeySource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/gemini/api-key", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"api_key":"AIza-remote","voice":"Aoede"}`))
	})

	credential, err := source.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AIza-remote", credential.APIKey)
	assert.Equal(t, "Aoede", credential.Voice)
	assert.Equal(t, "remote", credential.Source)
}

func TestAPIKeySourceMapsDisabledToNotFound(t *testing.T) {
	t.Parallel()

	source := newTestKeySource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"Gemini Live is not enabled"}`))
	})

	_, err := source.Credential(context.Background())
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
	assert.Contains(t, err.Error(), "Gemini Live is not enabled")
}

func TestAPIKeySourceRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	source := newTestKeySource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"api_key":"  ","voice":"Puck"}`))
	})

	_, err := source.Credential(context.Background())
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestAPIKeySourceServerErrorIsNotNotFound(t *testing.T) {
	t.Parallel()

	source := newTestKeySource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := source.Credential(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCredentialNotFound)
	assert.Contains(t, err.Error(), "status 502")
}
