package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceHarness struct {
	store       *mocks.MockSessionStore
	history     *mocks.MockHistoryRepository
	secrets     *mocks.MockSecretStore
	credentials *mocks.MockCredentialSource
	clock       *mocks.MockClock
	service     *Service
}

func newServiceHarness(t *testing.T) serviceHarness {
	t.Helper()

	h := serviceHarness{
		store:       mocks.NewMockSessionStore(t),
		history:     mocks.NewMockHistoryRepository(t),
		secrets:     mocks.NewMockSecretStore(t),
		credentials: mocks.NewMockCredentialSource(t),
		clock:       mocks.NewMockClock(t),
	}
	h.service = NewService(h.store, h.history, h.secrets, h.credentials, h.clock)
	return h
}

func TestServiceSetAPIKeyTrimsAndStores(t *testing.T) {
	h := newServiceHarness(t)
	h.secrets.EXPECT().Put(mockAnyContext(), "gemini_api_key", "AIza-key").Return(nil).Once()

	err := h.service.SetAPIKey(context.Background(), SetAPIKeyCommand{SecretKey: "gemini_api_key", Value: "  AIza-key\n"})
	require.NoError(t, err)
}

func TestServiceSetAPIKeyRejectsEmptyValue(t *testing.T) {
	h := newServiceHarness(t)

	err := h.service.SetAPIKey(context.Background(), SetAPIKeyCommand{SecretKey: "gemini_api_key", Value: "   "})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestServiceSetAPIKeyWrapsStoreFailure(t *testing.T) {
	h := newServiceHarness(t)
	h.secrets.EXPECT().Put(mockAnyContext(), "gemini_api_key", "AIza").Return(errors.New("disk full")).Once()

	err := h.service.SetAPIKey(context.Background(), SetAPIKeyCommand{SecretKey: "gemini_api_key", Value: "AIza"})
	require.ErrorContains(t, err, "store api key: disk full")
}

func TestServiceRemoveAPIKey(t *testing.T) {
	h := newServiceHarness(t)
	h.secrets.EXPECT().Delete(mockAnyContext(), "gemini_api_key").Return(nil).Once()

	require.NoError(t, h.service.RemoveAPIKey(context.Background(), RemoveAPIKeyCommand{SecretKey: "gemini_api_key"}))
}

func TestServiceAPIKeyStatus(t *testing.T) {
	h := newServiceHarness(t)
	h.credentials.EXPECT().Credential(mockAnyContext()).Return(domain.Credential{APIKey: "k", Source: "env:GEMINI_API_KEY"}, nil).Once()
	h.credentials.EXPECT().Credential(mockAnyContext()).Return(domain.Credential{}, domain.ErrCredentialNotFound).Once()

	status := h.service.APIKeyStatus(context.Background())
	assert.True(t, status.Found)
	assert.Equal(t, "env:GEMINI_API_KEY", status.Source)

	status = h.service.APIKeyStatus(context.Background())
	assert.False(t, status.Found)
	assert.ErrorIs(t, status.Err, domain.ErrCredentialNotFound)
}

func TestServiceListSessionsFromStore(t *testing.T) {
	h := newServiceHarness(t)
	sessions := []domain.Session{{ID: "s-2"}, {ID: "s-1"}}
	h.store.EXPECT().ListSessions(mockAnyContext(), 5).Return(sessions, nil).Once()

	got, err := h.service.ListSessions(context.Background(), ListSessionsQuery{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, sessions, got)
}

func TestServiceListSessionsClassifiesStoreFailure(t *testing.T) {
	h := newServiceHarness(t)
	h.store.EXPECT().ListSessions(mockAnyContext(), 0).Return(nil, errors.New("connection refused")).Once()

	_, err := h.service.ListSessions(context.Background(), ListSessionsQuery{})
	require.ErrorIs(t, err, domain.ErrPersistence)
}

func TestServiceListSessionsFromLocalHistory(t *testing.T) {
	h := newServiceHarness(t)
	started := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	h.history.EXPECT().List(mockAnyContext()).Return([]domain.HistoryEntry{
		{SessionID: "s-3", Model: "models/live", Voice: "Puck", StartedAt: started, LastSeen: started.Add(time.Hour)},
		{SessionID: "s-2"},
		{SessionID: "s-1"},
	}, nil).Once()

	got, err := h.service.ListSessions(context.Background(), ListSessionsQuery{Limit: 2, Local: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Session{
		ID:        "s-3",
		Model:     "models/live",
		Voice:     "Puck",
		CreatedAt: started,
		UpdatedAt: started.Add(time.Hour),
	}, got[0])
	assert.Empty(t, got[0].Status)
}

func TestServiceSessionContext(t *testing.T) {
	h := newServiceHarness(t)
	want := domain.SessionContext{Session: domain.Session{ID: "s-1"}}
	h.store.EXPECT().GetSessionContext(mockAnyContext(), domain.SessionID("s-1"), 20).Return(want, nil).Once()
	h.store.EXPECT().GetSessionContext(mockAnyContext(), domain.SessionID("gone"), 20).Return(domain.SessionContext{}, domain.ErrSessionNotFound).Once()

	got, err := h.service.SessionContext(context.Background(), SessionContextQuery{ID: "s-1", TranscriptLimit: 20})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = h.service.SessionContext(context.Background(), SessionContextQuery{ID: "gone", TranscriptLimit: 20})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NotErrorIs(t, err, domain.ErrPersistence)

	_, err = h.service.SessionContext(context.Background(), SessionContextQuery{ID: " "})
	require.ErrorContains(t, err, "session id is required")
}

func TestServiceResolveResume(t *testing.T) {
	h := newServiceHarness(t)
	h.history.EXPECT().Last(mockAnyContext()).Return(domain.HistoryEntry{SessionID: "s-last"}, nil).Once()

	id, err := h.service.ResolveResume(context.Background(), ResumeCommand{})
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = h.service.ResolveResume(context.Background(), ResumeCommand{SessionID: " s-1 "})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s-1"), id)

	id, err = h.service.ResolveResume(context.Background(), ResumeCommand{Last: true})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("s-last"), id)

	_, err = h.service.ResolveResume(context.Background(), ResumeCommand{SessionID: "s-1", Last: true})
	require.ErrorContains(t, err, "not both")
}

func TestServiceResolveResumeWithEmptyHistory(t *testing.T) {
	h := newServiceHarness(t)
	h.history.EXPECT().Last(mockAnyContext()).Return(domain.HistoryEntry{}, domain.ErrHistoryEmpty).Once()

	_, err := h.service.ResolveResume(context.Background(), ResumeCommand{Last: true})
	require.ErrorIs(t, err, domain.ErrHistoryEmpty)
}

func TestServiceRecordHistory(t *testing.T) {
	h := newServiceHarness(t)
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	created := now.Add(-20 * time.Minute)
	h.clock.EXPECT().Now().Return(now)
	h.history.EXPECT().Record(mockAnyContext(), domain.HistoryEntry{
		SessionID: "s-1",
		Model:     "models/live",
		Voice:     "Kore",
		Backend:   "sqlite",
		StartedAt: created,
		LastSeen:  now,
	}).Return(nil).Once()
	h.history.EXPECT().Record(mockAnyContext(), mock.MatchedBy(func(entry domain.HistoryEntry) bool {
		return entry.SessionID == "s-2" && entry.StartedAt.Equal(now)
	})).Return(nil).Once()

	err := h.service.RecordHistory(context.Background(), RecordHistoryCommand{
		Session: domain.Session{ID: "s-1", Model: "models/live", Voice: "Kore", CreatedAt: created},
		Backend: "sqlite",
	})
	require.NoError(t, err)

	err = h.service.RecordHistory(context.Background(), RecordHistoryCommand{Session: domain.Session{ID: "s-2"}})
	require.NoError(t, err)
}

func mockAnyContext() interface{} {
	return mock.Anything
}
