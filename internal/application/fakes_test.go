package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

var errStoreDown = errors.New("store unavailable")

type inMemorySessionStore struct {
	mu          sync.Mutex
	now         time.Time
	sessions    map[domain.SessionID]domain.Session
	transcripts map[domain.SessionID][]domain.Transcript
	nextID      int

	failCreate     error
	failUpdate     error
	failTranscript error
	failContext    error

	updates      []domain.SessionPatch
	contextCalls int
}

func newInMemorySessionStore() *inMemorySessionStore {
	return &inMemorySessionStore{
		now:         time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		sessions:    map[domain.SessionID]domain.Session{},
		transcripts: map[domain.SessionID][]domain.Transcript{},
	}
}

var _ ports.SessionStore = (*inMemorySessionStore)(nil)

func (s *inMemorySessionStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *inMemorySessionStore) CreateSession(_ context.Context, draft domain.SessionDraft) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return domain.Session{}, s.failCreate
	}

	s.nextID++
	now := s.tick()
	session := domain.Session{
		ID:        domain.SessionID(fmt.Sprintf("session-%d", s.nextID)),
		UserID:    "user-1",
		Status:    domain.SessionStatusActive,
		Model:     draft.Model,
		Voice:     draft.Voice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *inMemorySessionStore) UpdateSession(_ context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, patch)
	if s.failUpdate != nil {
		return domain.Session{}, s.failUpdate
	}

	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	updated, err := patch.Apply(session, s.tick())
	if err != nil {
		return domain.Session{}, err
	}
	s.sessions[id] = updated
	return updated, nil
}

func (s *inMemorySessionStore) AddTranscript(_ context.Context, draft domain.TranscriptDraft) (domain.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTranscript != nil {
		return domain.Transcript{}, s.failTranscript
	}

	session, ok := s.sessions[draft.SessionID]
	if !ok {
		return domain.Transcript{}, domain.ErrSessionNotFound
	}
	transcript := domain.Transcript{
		ID:            domain.TranscriptID(fmt.Sprintf("t-%d", len(s.transcripts[draft.SessionID])+1)),
		SessionID:     draft.SessionID,
		Role:          draft.Role,
		Content:       draft.Content,
		AudioDuration: draft.AudioDuration,
		Timestamp:     s.tick(),
	}
	s.transcripts[draft.SessionID] = append(s.transcripts[draft.SessionID], transcript)
	session.MessageCount++
	s.sessions[draft.SessionID] = session
	return transcript, nil
}

func (s *inMemorySessionStore) GetSessionContext(_ context.Context, id domain.SessionID, limit int) (domain.SessionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextCalls++
	if s.failContext != nil {
		return domain.SessionContext{}, s.failContext
	}

	session, ok := s.sessions[id]
	if !ok {
		return domain.SessionContext{}, domain.ErrSessionNotFound
	}
	transcripts := append([]domain.Transcript(nil), s.transcripts[id]...)
	sort.SliceStable(transcripts, func(i, j int) bool {
		return transcripts[i].Timestamp.Before(transcripts[j].Timestamp)
	})
	if limit > 0 && len(transcripts) > limit {
		transcripts = transcripts[len(transcripts)-limit:]
	}
	formatted := domain.FormatTranscripts(transcripts)
	return domain.SessionContext{
		Session:              session,
		Transcripts:          transcripts,
		FormattedTranscripts: formatted,
		ContextPrompt:        domain.BuildContextPrompt(session.Summary, formatted),
	}, nil
}

func (s *inMemorySessionStore) ListSessions(_ context.Context, limit int) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *inMemorySessionStore) session(id domain.SessionID) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *inMemorySessionStore) transcriptsFor(id domain.SessionID) []domain.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transcript(nil), s.transcripts[id]...)
}

func (s *inMemorySessionStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func (s *inMemorySessionStore) contextCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextCalls
}

func (s *inMemorySessionStore) setFailures(create, update, transcript, loadContext error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = create
	s.failUpdate = update
	s.failTranscript = transcript
	s.failContext = loadContext
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubSummarizer struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
	block   chan struct{}
	started chan struct{}
}

func (s *stubSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	block := s.block
	started := s.started
	text, err := s.text, s.err
	s.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSummarizer) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type fakeLiveConn struct {
	inbound chan domain.ServerMessage
	closed  chan domain.CloseInfo

	mu        sync.Mutex
	closeCode int
	closeMsg  string
	sentText  []string
	sentAudio int
	closeOnce sync.Once
}

func newFakeLiveConn() *fakeLiveConn {
	return &fakeLiveConn{
		inbound: make(chan domain.ServerMessage, 16),
		closed:  make(chan domain.CloseInfo, 1),
	}
}

var _ ports.LiveConn = (*fakeLiveConn)(nil)

func (c *fakeLiveConn) Receive(ctx context.Context) (domain.ServerMessage, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case info := <-c.closed:
		return domain.ServerMessage{}, &ports.CloseError{Info: info}
	case <-ctx.Done():
		return domain.ServerMessage{}, ctx.Err()
	}
}

func (c *fakeLiveConn) SendText(_ context.Context, text string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentText = append(c.sentText, text)
	return nil
}

func (c *fakeLiveConn) SendAudio(_ context.Context, pcm []byte, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentAudio += len(pcm)
	return nil
}

func (c *fakeLiveConn) Close(code int, reason string) error {
	c.mu.Lock()
	c.closeCode = code
	c.closeMsg = reason
	c.mu.Unlock()
	c.serverClose(domain.CloseInfo{Code: code, Reason: reason})
	return nil
}

// serverClose simulates the provider dropping the connection.
func (c *fakeLiveConn) serverClose(info domain.CloseInfo) {
	c.closeOnce.Do(func() {
		c.closed <- info
	})
}

func (c *fakeLiveConn) closeDetails() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeMsg
}

type fakeDialer struct {
	mu     sync.Mutex
	setups []domain.LiveSetup
	conns  []*fakeLiveConn
	errs   []error
}

func (d *fakeDialer) Dial(_ context.Context, _ domain.Credential, setup domain.LiveSetup) (ports.LiveConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setups = append(d.setups, setup)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	conn := newFakeLiveConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.setups)
}

func (d *fakeDialer) setup(i int) domain.LiveSetup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setups[i]
}

func (d *fakeDialer) conn(i int) *fakeLiveConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}
