package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T, store *inMemorySessionStore, summarizer *stubSummarizer, opts ...MemoryOption) *MemoryManager {
	t.Helper()

	m, err := NewMemoryManager(store, summarizer, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemoryManagerStartSessionResetsState(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	first, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, first.Status)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "hello", 0)
	require.NoError(t, err)
	require.Len(t, m.Buffer(), 1)

	second, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, m.Buffer())
	assert.Zero(t, m.MessageCount())
	assert.True(t, m.IsActive())
}

func TestMemoryManagerStartSessionFailureKeepsNoHandle(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)

	store.setFailures(errStoreDown, nil, nil, nil)
	_, err = m.StartSession(ctx, "m", "v")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, m.HasSession())
	assert.False(t, m.IsActive())
}

func TestMemoryManagerAddTranscriptRequiresSession(t *testing.T) {
	t.Parallel()

	m := newTestMemory(t, newInMemorySessionStore(), &stubSummarizer{text: "summary"})

	_, err := m.AddTranscript(context.Background(), domain.RoleUser, "hello", 0)
	require.ErrorIs(t, err, domain.ErrNoActiveSession)
	assert.Empty(t, m.Buffer())
}

func TestMemoryManagerAddTranscriptBuffersBeforePersisting(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)

	store.setFailures(nil, nil, errStoreDown, nil)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "lost on the wire", 0)
	require.ErrorIs(t, err, domain.ErrPersistence)

	assert.Equal(t, []domain.Turn{{Role: domain.RoleUser, Content: "lost on the wire"}}, m.Buffer())
	assert.Zero(t, m.MessageCount())
}

func TestMemoryManagerThresholdTriggersExactlyOneSummary(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	summarizer := &stubSummarizer{text: "they talked about tea"}
	m := newTestMemory(t, store, summarizer)
	ctx := context.Background()

	session, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)

	for i := 1; i <= 9; i++ {
		_, err := m.AddTranscript(ctx, domain.RoleUser, "turn", 0)
		require.NoError(t, err)
		assert.Equal(t, i, m.MessageCount())
	}
	assert.Zero(t, summarizer.callCount())

	_, err = m.AddTranscript(ctx, domain.RoleAssistant, "tenth", time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return summarizer.callCount() == 1 && m.MessageCount() == 0
	}, time.Second, 5*time.Millisecond)

	stored := store.session(session.ID)
	assert.Equal(t, "they talked about tea", stored.Summary)
	require.NotNil(t, stored.LastSummaryAt)

	local, ok := m.Session()
	require.True(t, ok)
	assert.Equal(t, "they talked about tea", local.Summary)
	require.NotNil(t, local.LastSummaryAt)

	for range 9 {
		_, err := m.AddTranscript(ctx, domain.RoleUser, "more", 0)
		require.NoError(t, err)
	}
	require.NoError(t, m.Close())
	assert.Equal(t, 1, summarizer.callCount())
	assert.Equal(t, 9, m.MessageCount())
}

func TestMemoryManagerSummarizationDoesNotClearBuffer(t *testing.T) {
	t.Parallel()

	summarizer := &stubSummarizer{text: "summary"}
	m := newTestMemory(t, newInMemorySessionStore(), summarizer)
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "first question", 0)
	require.NoError(t, err)

	ran, err := m.TriggerSummarization(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	_, err = m.AddTranscript(ctx, domain.RoleAssistant, "second answer", 0)
	require.NoError(t, err)
	ran, err = m.TriggerSummarization(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	assert.Len(t, m.Buffer(), 2)
	assert.Contains(t, summarizer.lastPrompt(), "[USER]: first question\n[GEMINI]: second answer")
	assert.Contains(t, summarizer.lastPrompt(), "## Open threads")
}

func TestMemoryManagerTriggerSummarizationIsExclusive(t *testing.T) {
	t.Parallel()

	summarizer := &stubSummarizer{
		text:    "summary",
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m := newTestMemory(t, newInMemorySessionStore(), summarizer)
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "hello", 0)
	require.NoError(t, err)

	firstDone := make(chan bool, 1)
	go func() {
		ran, _ := m.TriggerSummarization(ctx)
		firstDone <- ran
	}()
	<-summarizer.started
	assert.True(t, m.Summarizing())

	var wg sync.WaitGroup
	results := make(chan bool, 5)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ran, err := m.TriggerSummarization(ctx)
			assert.NoError(t, err)
			results <- ran
		}()
	}
	wg.Wait()
	close(results)
	for ran := range results {
		assert.False(t, ran)
	}

	close(summarizer.block)
	assert.True(t, <-firstDone)
	assert.Equal(t, 1, summarizer.callCount())
	assert.False(t, m.Summarizing())
}

func TestMemoryManagerSummarizationFailureReleasesGuard(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	summarizer := &stubSummarizer{err: errors.New("model overloaded")}
	m := newTestMemory(t, store, summarizer)
	ctx := context.Background()

	session, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "hello", 0)
	require.NoError(t, err)

	ran, err := m.TriggerSummarization(ctx)
	assert.True(t, ran)
	require.ErrorIs(t, err, domain.ErrSummarization)
	assert.False(t, m.Summarizing())
	assert.Equal(t, 1, m.MessageCount())
	assert.Empty(t, store.session(session.ID).Summary)

	ran, err = m.TriggerSummarization(ctx)
	assert.True(t, ran)
	require.Error(t, err)
	assert.Equal(t, 2, summarizer.callCount())
}

func TestMemoryManagerTriggerSummarizationNoops(t *testing.T) {
	t.Parallel()

	summarizer := &stubSummarizer{text: "summary"}
	m := newTestMemory(t, newInMemorySessionStore(), summarizer)
	ctx := context.Background()

	ran, err := m.TriggerSummarization(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "no session")

	_, err = m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	ran, err = m.TriggerSummarization(ctx)
	require.NoError(t, err)
	assert.False(t, ran, "empty buffer")
	assert.Zero(t, summarizer.callCount())
}

func TestMemoryManagerBackgroundFailureIsReportedAsFault(t *testing.T) {
	t.Parallel()

	summarizer := &stubSummarizer{err: errors.New("quota")}
	m := newTestMemory(t, newInMemorySessionStore(), summarizer, WithSummaryThreshold(2))
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	for range 2 {
		_, err := m.AddTranscript(ctx, domain.RoleUser, "hi", 0)
		require.NoError(t, err)
	}

	select {
	case fault := <-m.Faults():
		assert.ErrorIs(t, fault, domain.ErrSummarization)
	case <-time.After(time.Second):
		t.Fatal("expected a fault from the threshold summary")
	}
}

func TestMemoryManagerPeriodicSummary(t *testing.T) {
	t.Parallel()

	summarizer := &stubSummarizer{text: "periodic"}
	m := newTestMemory(t, newInMemorySessionStore(), summarizer, WithSummaryInterval(40*time.Millisecond))
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, summarizer.callCount(), "empty buffer must not be summarized")

	_, err = m.AddTranscript(ctx, domain.RoleUser, "hello", 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return summarizer.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.EndSession(ctx))
	calls := summarizer.callCount()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, calls, summarizer.callCount(), "periodic job must stop with the session")
}

func TestMemoryManagerContextForReconnectionAlwaysRefetches(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	prompt, err := m.ContextForReconnection(ctx)
	require.NoError(t, err)
	assert.Empty(t, prompt)
	assert.Zero(t, store.contextCallCount())

	session, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "remember the blue door", 0)
	require.NoError(t, err)

	prompt, err = m.ContextForReconnection(ctx)
	require.NoError(t, err)
	assert.Contains(t, prompt, "[USER]: remember the blue door")

	// A summary written by another process is visible on the next fetch.
	_, err = store.UpdateSession(ctx, session.ID, domain.SummaryPatch("written elsewhere"))
	require.NoError(t, err)
	prompt, err = m.ContextForReconnection(ctx)
	require.NoError(t, err)
	assert.Contains(t, prompt, "written elsewhere")
	assert.Equal(t, 2, store.contextCallCount())

	store.setFailures(nil, nil, nil, errStoreDown)
	_, err = m.ContextForReconnection(ctx)
	require.ErrorIs(t, err, domain.ErrPersistence)
}

func TestMemoryManagerMarkTimeout(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	require.ErrorIs(t, m.MarkTimeout(ctx), domain.ErrNoActiveSession)

	session, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	require.NoError(t, m.MarkTimeout(ctx))

	assert.False(t, m.IsActive())
	assert.True(t, m.HasSession())
	assert.Equal(t, domain.SessionStatusTimeout, store.session(session.ID).Status)

	updates := store.updateCount()
	require.NoError(t, m.MarkTimeout(ctx), "a later window timing out again is not a fault")
	assert.Equal(t, updates, store.updateCount())
	assert.Equal(t, domain.SessionStatusTimeout, store.session(session.ID).Status)

	require.NoError(t, m.EndSession(ctx))
	assert.ErrorIs(t, m.MarkTimeout(ctx), domain.ErrNoActiveSession)
}

func TestMemoryManagerMarkTimeoutPersistenceFailureIsReported(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)

	store.setFailures(nil, errStoreDown, nil, nil)
	err = m.MarkTimeout(ctx)
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.False(t, m.IsActive())
}

func TestMemoryManagerEndSessionFlushesAndEnds(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	summarizer := &stubSummarizer{text: "final summary"}
	m := newTestMemory(t, store, summarizer)
	ctx := context.Background()

	session, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "last words", 0)
	require.NoError(t, err)

	require.NoError(t, m.EndSession(ctx))

	assert.Equal(t, 1, summarizer.callCount())
	stored := store.session(session.ID)
	assert.Equal(t, "final summary", stored.Summary)
	assert.Equal(t, domain.SessionStatusEnded, stored.Status)
	assert.False(t, m.HasSession())
	assert.Empty(t, m.Buffer())

	require.NoError(t, m.EndSession(ctx), "ending twice is a no-op")
}

func TestMemoryManagerEndSessionAfterTimeout(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	m := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	session, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	require.NoError(t, m.MarkTimeout(ctx))
	require.NoError(t, m.EndSession(ctx))

	assert.Equal(t, domain.SessionStatusEnded, store.session(session.ID).Status)
}

func TestMemoryManagerEndSessionClearsHandleWhenEverythingFails(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	summarizer := &stubSummarizer{err: errors.New("summarizer down")}
	m := newTestMemory(t, store, summarizer)
	ctx := context.Background()

	_, err := m.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "hello", 0)
	require.NoError(t, err)

	store.setFailures(nil, errStoreDown, nil, nil)
	err = m.EndSession(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSummarization)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	assert.False(t, m.HasSession())
	assert.False(t, m.IsActive())
	assert.Empty(t, m.Buffer())

	store.setFailures(nil, nil, nil, nil)
	_, err = m.StartSession(ctx, "m", "v")
	require.NoError(t, err, "manager must be startable again")
}

func TestMemoryManagerStartThenResumeRoundTrip(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	first := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	ctx := context.Background()

	session, err := first.StartSession(ctx, "m", "v")
	require.NoError(t, err)
	for _, line := range []string{"one", "two", "three"} {
		_, err := first.AddTranscript(ctx, domain.RoleUser, line, 0)
		require.NoError(t, err)
	}

	second := newTestMemory(t, store, &stubSummarizer{text: "summary"})
	sc, err := second.ResumeSession(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, session.ID, sc.Session.ID)
	assert.Equal(t, "m", sc.Session.Model)
	assert.Equal(t, "v", sc.Session.Voice)
	require.Len(t, sc.Transcripts, 3)
	for i := 1; i < len(sc.Transcripts); i++ {
		assert.True(t, sc.Transcripts[i-1].Timestamp.Before(sc.Transcripts[i].Timestamp))
	}
	assert.Equal(t, "one", sc.Transcripts[0].Content)
	assert.Empty(t, second.Buffer())
	assert.Zero(t, second.MessageCount())
	assert.True(t, second.IsActive())
}

func TestMemoryManagerResumeUnknownSession(t *testing.T) {
	t.Parallel()

	m := newTestMemory(t, newInMemorySessionStore(), &stubSummarizer{text: "summary"})

	_, err := m.ResumeSession(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, m.HasSession())
}

func TestMemoryManagerSendsTranscriptPromptToSummarizer(t *testing.T) {
	t.Parallel()

	store := newInMemorySessionStore()
	summarizer := mocks.NewMockSummarizer(t)
	summarizer.EXPECT().
		Summarize(mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "## Transcript") &&
				strings.Contains(prompt, "[USER]: plan a trip") &&
				strings.Contains(prompt, "[GEMINI]: where to?")
		})).
		Return("  Planning a trip.  ", nil).
		Once()

	m, err := NewMemoryManager(store, summarizer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	ctx := context.Background()
	session, err := m.StartSession(ctx, "models/live", "Puck")
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleUser, "plan a trip", 0)
	require.NoError(t, err)
	_, err = m.AddTranscript(ctx, domain.RoleAssistant, "where to?", time.Second)
	require.NoError(t, err)

	ran, err := m.TriggerSummarization(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "Planning a trip.", store.session(session.ID).Summary)
}
