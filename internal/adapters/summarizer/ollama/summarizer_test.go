package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizePostsNonStreamingGenerate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen2.5", body.Model)
		assert.Equal(t, "summarize this", body.Prompt)
		assert.False(t, body.Stream)

		_, _ = w.Write([]byte(`{"model":"qwen2.5","response":"  a short summary \n","done":true}`))
	}))
	t.Cleanup(server.Close)

	summarizer := New(server.URL+"/", "qwen2.5")
	summarizer.HTTPClient = server.Client()

	summary, err := summarizer.Summarize(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, "a short summary", summary)
}

func TestSummarizeReportsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nope\" not found, try pulling it first"}`))
	}))
	t.Cleanup(server.Close)

	summarizer := New(server.URL, "nope")
	summarizer.HTTPClient = server.Client()

	_, err := summarizer.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "try pulling it first")
}

func TestSummarizeTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"response":"late"}`))
	}))
	t.Cleanup(server.Close)

	summarizer := New(server.URL, "m")
	summarizer.HTTPClient = server.Client()
	summarizer.RequestTimeout = 20 * time.Millisecond

	_, err := summarizer.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request ollama generate")
}

func TestSummarizeValidatesInput(t *testing.T) {
	t.Parallel()

	_, err := New("http://localhost:11434", "m").Summarize(context.Background(), "  ")
	require.Error(t, err)

	_, err = New("unix:///tmp/ollama.sock", "m").Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}
