package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	"github.com/go-co-op/gocron/v2"
)

const (
	DefaultSummaryThreshold   = 10
	DefaultSummaryInterval    = 3 * time.Minute
	DefaultContextTranscripts = 50
	DefaultRequestTimeout     = 30 * time.Second

	faultBufferSize = 32
)

const (
	SummaryOutcomeOK    = "ok"
	SummaryOutcomeError = "error"
	SummaryOutcomeEmpty = "empty"
)

const summaryInstruction = `You maintain the memory of a live voice conversation that will be cut off and restored on a new connection.
Summarize the transcript below so the assistant can pick up where it left off.

Use exactly these sections:
## Topics
What was discussed, most recent last.
## Facts
Names, numbers, preferences and decisions the user stated.
## Open threads
Questions or tasks that were still in progress.

Stay under 250 words. Do not invent details that are not in the transcript.`

type MemoryOption func(*MemoryManager)

func WithSummaryThreshold(n int) MemoryOption {
	return func(m *MemoryManager) {
		if n > 0 {
			m.threshold = n
		}
	}
}

func WithSummaryInterval(d time.Duration) MemoryOption {
	return func(m *MemoryManager) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithContextTranscripts(n int) MemoryOption {
	return func(m *MemoryManager) {
		if n > 0 {
			m.contextLimit = n
		}
	}
}

func WithRequestTimeout(d time.Duration) MemoryOption {
	return func(m *MemoryManager) {
		if d > 0 {
			m.requestTimeout = d
		}
	}
}

func WithMemoryClock(clock ports.Clock) MemoryOption {
	return func(m *MemoryManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithMemoryLogger(logger *slog.Logger) MemoryOption {
	return func(m *MemoryManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMemoryMetrics(metrics ports.Metrics) MemoryOption {
	return func(m *MemoryManager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// MemoryManager owns the local handle of the current session, the
// conversation buffer fed to the summarizer, and the periodic summary job.
type MemoryManager struct {
	store      ports.SessionStore
	summarizer ports.Summarizer
	clock      ports.Clock
	logger     *slog.Logger
	metrics    ports.Metrics

	threshold      int
	interval       time.Duration
	contextLimit   int
	requestTimeout time.Duration

	scheduler gocron.Scheduler

	mu      sync.Mutex
	session *domain.Session
	buffer  []domain.Turn
	job     gocron.Job

	// summarizeMu admits one summarization at a time. Triggers use TryLock
	// and are dropped while it is held.
	summarizeMu sync.Mutex
	summarizing atomic.Bool

	faults     chan error
	background sync.WaitGroup
	closeOnce  sync.Once
}

func NewMemoryManager(store ports.SessionStore, summarizer ports.Summarizer, opts ...MemoryOption) (*MemoryManager, error) {
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer is nil")
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create summary scheduler: %w", err)
	}

	m := &MemoryManager{
		store:          store,
		summarizer:     summarizer,
		clock:          ports.SystemClock{},
		logger:         slog.Default(),
		metrics:        ports.NopMetrics{},
		threshold:      DefaultSummaryThreshold,
		interval:       DefaultSummaryInterval,
		contextLimit:   DefaultContextTranscripts,
		requestTimeout: DefaultRequestTimeout,
		scheduler:      scheduler,
		faults:         make(chan error, faultBufferSize),
	}
	for _, opt := range opts {
		opt(m)
	}

	scheduler.Start()
	return m, nil
}

// StartSession creates a new persisted session and makes it current.
// On failure the manager is left without a session.
func (m *MemoryManager) StartSession(ctx context.Context, model, voice string) (domain.Session, error) {
	m.mu.Lock()
	m.stopJobLocked()
	m.session = nil
	m.buffer = nil
	m.mu.Unlock()

	session, err := m.store.CreateSession(ctx, domain.SessionDraft{Model: model, Voice: voice})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: create session: %w", domain.ErrPersistence, err)
	}
	session.MessageCount = 0

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &session
	if err := m.startJobLocked(session.ID); err != nil {
		m.reportFault(err)
	}

	m.logger.Info("memory session started", "session_id", session.ID, "model", model, "voice", voice)
	return session, nil
}

// ResumeSession adopts an existing session. The buffer starts empty; the
// persisted transcripts are only returned for restoration.
func (m *MemoryManager) ResumeSession(ctx context.Context, id domain.SessionID) (domain.SessionContext, error) {
	sc, err := m.store.GetSessionContext(ctx, id, m.contextLimit)
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("%w: load session %s: %w", domain.ErrPersistence, id, err)
	}

	session := sc.Session
	session.MessageCount = 0

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopJobLocked()
	m.session = &session
	m.buffer = nil
	if err := m.startJobLocked(session.ID); err != nil {
		m.reportFault(err)
	}

	m.logger.Info("memory session resumed", "session_id", id, "transcripts", len(sc.Transcripts))
	return sc, nil
}

// AddTranscript buffers a turn and persists it. Reaching the summary
// threshold starts a summarization in the background.
func (m *MemoryManager) AddTranscript(ctx context.Context, role domain.Role, content string, audioDuration time.Duration) (domain.Transcript, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return domain.Transcript{}, domain.ErrNoActiveSession
	}
	id := m.session.ID
	m.buffer = append(m.buffer, domain.Turn{Role: role, Content: content, AudioDuration: audioDuration})
	m.mu.Unlock()

	transcript, err := m.store.AddTranscript(ctx, domain.TranscriptDraft{
		SessionID:     id,
		Role:          role,
		Content:       content,
		AudioDuration: audioDuration,
	})
	if err != nil {
		m.metrics.TranscriptRecorded(false)
		return domain.Transcript{}, fmt.Errorf("%w: add transcript: %w", domain.ErrPersistence, err)
	}
	m.metrics.TranscriptRecorded(true)

	m.mu.Lock()
	trigger := false
	if m.session != nil && m.session.ID == id {
		m.session.MessageCount++
		trigger = m.session.MessageCount == m.threshold
	}
	m.mu.Unlock()

	if trigger {
		m.RequestSummarization()
	}

	return transcript, nil
}

// RequestSummarization runs TriggerSummarization in the background and
// reports any failure on the fault channel.
func (m *MemoryManager) RequestSummarization() {
	m.background.Add(1)
	go func() {
		defer m.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
		defer cancel()

		if _, err := m.TriggerSummarization(ctx); err != nil {
			m.reportFault(err)
		}
	}()
}

// TriggerSummarization summarizes the buffer and stores the result as the
// session summary. It reports false when it did not run: another run was in
// flight, there is no session, or the buffer is empty.
func (m *MemoryManager) TriggerSummarization(ctx context.Context) (bool, error) {
	if !m.summarizeMu.TryLock() {
		return false, nil
	}
	m.summarizing.Store(true)
	defer func() {
		m.summarizing.Store(false)
		m.summarizeMu.Unlock()
	}()

	return m.summarize(ctx)
}

func (m *MemoryManager) summarize(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.session == nil || len(m.buffer) == 0 {
		m.mu.Unlock()
		return false, nil
	}
	id := m.session.ID
	turns := slices.Clone(m.buffer)
	m.mu.Unlock()

	summary, err := m.summarizer.Summarize(ctx, buildSummaryPrompt(turns))
	if err != nil {
		m.metrics.SummarizationFinished(SummaryOutcomeError)
		return true, fmt.Errorf("%w: summarize session %s: %w", domain.ErrSummarization, id, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		m.metrics.SummarizationFinished(SummaryOutcomeEmpty)
		return true, fmt.Errorf("%w: summarizer returned no text", domain.ErrSummarization)
	}

	updated, err := m.store.UpdateSession(ctx, id, domain.SummaryPatch(summary))
	if err != nil {
		m.metrics.SummarizationFinished(SummaryOutcomeError)
		return true, fmt.Errorf("%w: save summary: %w", domain.ErrPersistence, err)
	}

	m.mu.Lock()
	if m.session != nil && m.session.ID == id {
		summarizedAt := m.clock.Now()
		if updated.LastSummaryAt != nil {
			summarizedAt = *updated.LastSummaryAt
		}
		m.session.Summary = summary
		m.session.LastSummaryAt = &summarizedAt
		m.session.MessageCount = 0
	}
	m.mu.Unlock()

	m.metrics.SummarizationFinished(SummaryOutcomeOK)
	m.logger.Debug("session summarized", "session_id", id, "turns", len(turns))
	return true, nil
}

// ContextForReconnection fetches the restoration prompt from the store.
// It returns "" without error when there is no current session.
func (m *MemoryManager) ContextForReconnection(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return "", nil
	}
	id := m.session.ID
	m.mu.Unlock()

	sc, err := m.store.GetSessionContext(ctx, id, m.contextLimit)
	if err != nil {
		return "", fmt.Errorf("%w: load context for %s: %w", domain.ErrPersistence, id, err)
	}

	return sc.ContextPrompt, nil
}

// MarkTimeout records that the provider cut the connection at its limit.
// The local status changes even if persisting it fails. A session that
// already timed out in an earlier window is left as is.
func (m *MemoryManager) MarkTimeout(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	id := m.session.ID
	from := m.session.Status
	if from == domain.SessionStatusTimeout {
		m.mu.Unlock()
		return nil
	}
	if !from.CanTransitionTo(domain.SessionStatusTimeout) {
		m.mu.Unlock()
		return &domain.StatusTransitionError{From: from, To: domain.SessionStatusTimeout}
	}
	m.session.Status = domain.SessionStatusTimeout
	m.mu.Unlock()

	if _, err := m.store.UpdateSession(ctx, id, domain.StatusPatch(domain.SessionStatusTimeout)); err != nil {
		return fmt.Errorf("%w: mark session %s timeout: %w", domain.ErrPersistence, id, err)
	}

	m.logger.Info("session marked as timed out", "session_id", id)
	return nil
}

// EndSession runs a final summarization, marks the session ended, and
// always leaves the manager without a session, whatever the network says.
func (m *MemoryManager) EndSession(ctx context.Context) error {
	m.mu.Lock()
	m.stopJobLocked()
	if m.session == nil {
		m.buffer = nil
		m.mu.Unlock()
		return nil
	}
	id := m.session.ID
	m.mu.Unlock()

	var errs []error

	// Waits for a run already in flight so the final one sees every turn.
	m.summarizeMu.Lock()
	m.summarizing.Store(true)
	if _, err := m.summarize(ctx); err != nil {
		errs = append(errs, err)
	}
	m.summarizing.Store(false)
	m.summarizeMu.Unlock()

	m.mu.Lock()
	status := domain.SessionStatusActive
	if m.session != nil {
		status = m.session.Status
	}
	m.mu.Unlock()

	if status.CanTransitionTo(domain.SessionStatusEnded) {
		if _, err := m.store.UpdateSession(ctx, id, domain.StatusPatch(domain.SessionStatusEnded)); err != nil {
			errs = append(errs, fmt.Errorf("%w: end session %s: %w", domain.ErrPersistence, id, err))
		}
	}

	m.mu.Lock()
	m.session = nil
	m.buffer = nil
	m.mu.Unlock()

	m.logger.Info("memory session ended", "session_id", id, "errors", len(errs))
	return errors.Join(errs...)
}

// IsActive reports the locally cached status. It is not re-validated
// against the store.
func (m *MemoryManager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.Status == domain.SessionStatusActive
}

func (m *MemoryManager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

func (m *MemoryManager) Session() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return domain.Session{}, false
	}
	return *m.session, true
}

func (m *MemoryManager) Buffer() []domain.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.buffer)
}

// MessageCount is the number of persisted turns since the last summary.
func (m *MemoryManager) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return 0
	}
	return m.session.MessageCount
}

func (m *MemoryManager) Summarizing() bool {
	return m.summarizing.Load()
}

// Faults carries errors from background work: threshold and periodic
// summaries. Sends never block; overflow is logged and dropped.
func (m *MemoryManager) Faults() <-chan error {
	return m.faults
}

// Close stops the periodic job and waits for background summaries.
func (m *MemoryManager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.stopJobLocked()
		m.mu.Unlock()

		if shutdownErr := m.scheduler.Shutdown(); shutdownErr != nil {
			err = fmt.Errorf("shutdown summary scheduler: %w", shutdownErr)
		}
		m.background.Wait()
	})
	return err
}

func (m *MemoryManager) startJobLocked(id domain.SessionID) error {
	job, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() {
			m.runPeriodic(id)
		}),
		gocron.WithName("summary_"+string(id)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule periodic summary: %w", err)
	}
	m.job = job
	return nil
}

func (m *MemoryManager) stopJobLocked() {
	if m.job == nil {
		return
	}
	if err := m.scheduler.RemoveJob(m.job.ID()); err != nil {
		m.logger.Debug("remove periodic summary job", "error", err)
	}
	m.job = nil
}

func (m *MemoryManager) runPeriodic(id domain.SessionID) {
	m.mu.Lock()
	skip := m.session == nil || m.session.ID != id || len(m.buffer) == 0
	m.mu.Unlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout)
	defer cancel()

	if _, err := m.TriggerSummarization(ctx); err != nil {
		m.reportFault(err)
	}
}

func (m *MemoryManager) reportFault(err error) {
	m.logger.Warn("memory background failure", "error", err)
	select {
	case m.faults <- err:
	default:
	}
}

func buildSummaryPrompt(turns []domain.Turn) string {
	return summaryInstruction + "\n\n## Transcript\n" + domain.FormatTurns(turns)
}
