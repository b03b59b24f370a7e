package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *SessionStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "token-123")
	client.HTTPClient = server.Client()
	return NewSessionStore(client)
}

func TestCreateSessionPostsDraftWithBearerToken(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/gemini/sessions/create", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var form map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, map[string]any{"model": "models/live", "voice": "Puck"}, form)

		_, _ = w.Write([]byte(`{"id":"s-1","user_id":"u-1","status":"active","model":"models/live","voice":"Puck","message_count":0,"updated_at":1760000000,"created_at":1760000000}`))
	})

	session, err := store.CreateSession(context.Background(), domain.SessionDraft{Model: "models/live", Voice: "Puck"})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s-1"), session.ID)
	assert.Equal(t, domain.SessionStatusActive, session.Status)
	assert.Equal(t, "Puck", session.Voice)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), session.CreatedAt)
	assert.Nil(t, session.LastSummaryAt)
}

func TestUpdateSessionSendsOnlyPatchedFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/gemini/sessions/s-1/update", r.URL.Path)

		var form map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, map[string]any{"summary": "talked about trains", "status": "timeout"}, form)

		_, _ = w.Write([]byte(`{"id":"s-1","user_id":"u-1","summary":"talked about trains","status":"timeout","message_count":4,"last_summary_at":1760000100,"updated_at":1760000100,"created_at":1760000000}`))
	})

	patch := domain.SummaryPatch("talked about trains")
	status := domain.SessionStatusTimeout
	patch.Status = &status

	session, err := store.UpdateSession(context.Background(), "s-1", patch)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusTimeout, session.Status)
	assert.Equal(t, "talked about trains", session.Summary)
	require.NotNil(t, session.LastSummaryAt)
	assert.Equal(t, time.Unix(1760000100, 0).UTC(), *session.LastSummaryAt)
}

func TestUpdateSessionMapsNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Session not found"}`))
	})

	_, err := store.UpdateSession(context.Background(), "missing", domain.StatusPatch(domain.SessionStatusEnded))
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Contains(t, err.Error(), "Session not found")
}

func TestAddTranscriptSendsMilliseconds(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/gemini/transcripts/add", r.URL.Path)

		var form map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, "s-1", form["session_id"])
		assert.Equal(t, "assistant", form["role"])
		assert.Equal(t, float64(1500), form["audio_duration"])

		_, _ = w.Write([]byte(`{"id":"t-1","session_id":"s-1","role":"assistant","content":"sure","audio_duration":1500,"timestamp":1760000050}`))
	})

	transcript, err := store.AddTranscript(context.Background(), domain.TranscriptDraft{
		SessionID:     "s-1",
		Role:          domain.RoleAssistant,
		Content:       "sure",
		AudioDuration: 1500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptID("t-1"), transcript.ID)
	assert.Equal(t, 1500*time.Millisecond, transcript.AudioDuration)
}

func TestAddTranscriptRejectsInvalidDraft(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := store.AddTranscript(context.Background(), domain.TranscriptDraft{SessionID: "s-1", Role: "narrator"})
	require.Error(t, err)
}

func TestGetSessionContextBuildsPromptWhenServerOmitsIt(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/gemini/sessions/s-1/context", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("transcript_limit"))

		_, _ = w.Write([]byte(`{
			"session":{"id":"s-1","user_id":"u-1","summary":"planning a move","status":"active","updated_at":1,"created_at":1},
			"transcripts":[
				{"id":"t-1","session_id":"s-1","role":"user","content":"which city?","timestamp":10},
				{"id":"t-2","session_id":"s-1","role":"assistant","content":"Porto","timestamp":11}
			]
		}`))
	})

	sc, err := store.GetSessionContext(context.Background(), "s-1", 50)
	require.NoError(t, err)
	require.Len(t, sc.Transcripts, 2)
	assert.Equal(t, "[USER]: which city?\n[GEMINI]: Porto", sc.FormattedTranscripts)
	assert.Contains(t, sc.ContextPrompt, "planning a move")
	assert.Contains(t, sc.ContextPrompt, "[GEMINI]: Porto")
}

func TestListSessionsPassesLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/gemini/sessions", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"id":"s-2","user_id":"u-1","status":"ended","updated_at":20,"created_at":2},
			{"id":"s-1","user_id":"u-1","status":"timeout","updated_at":10,"created_at":1}
		]`))
	})

	sessions, err := store.ListSessions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, domain.SessionID("s-2"), sessions[0].ID)
	assert.Equal(t, domain.SessionStatusTimeout, sessions[1].Status)
}

func TestListSessionsRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"s-1","status":"paused","updated_at":1,"created_at":1}]`))
	})

	_, err := store.ListSessions(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paused")
}

func TestRequestTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})
	store.Client.RequestTimeout = 20 * time.Millisecond

	_, err := store.ListSessions(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list sessions")
}

func TestBuildAPIURLValidatesBase(t *testing.T) {
	t.Parallel()

	_, err := buildAPIURL("", "/x", nil)
	require.Error(t, err)

	_, err = buildAPIURL("ftp://host", "/x", nil)
	require.Error(t, err)

	endpoint, err := buildAPIURL("https://webui.example.com", "/api/v1/gemini/sessions", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://webui.example.com/api/v1/gemini/sessions", endpoint)
}
