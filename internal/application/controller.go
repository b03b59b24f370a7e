package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

const (
	DefaultOutputSampleRate = 24_000
	DefaultInputMIMEType    = "audio/pcm;rate=16000"

	eventBufferSize  = 256
	recordBufferSize = 64
)

type EventKind string

const (
	EventStateChanged       EventKind = "state_changed"
	EventSessionStarted     EventKind = "session_started"
	EventText               EventKind = "text"
	EventAudio              EventKind = "audio"
	EventInputTranscript    EventKind = "input_transcript"
	EventOutputTranscript   EventKind = "output_transcript"
	EventTurnComplete       EventKind = "turn_complete"
	EventInterrupted        EventKind = "interrupted"
	EventRemaining          EventKind = "remaining"
	EventTimeoutWarning     EventKind = "timeout_warning"
	EventPreTimeoutFlush    EventKind = "pre_timeout_flush"
	EventClosed             EventKind = "closed"
	EventReconnectScheduled EventKind = "reconnect_scheduled"
	EventFault              EventKind = "fault"
)

// Event is what the controller reports to its UI.
type Event struct {
	Kind      EventKind
	State     domain.ConnectionState
	Text      string
	Audio     []byte
	Remaining time.Duration
	Attempt   int
	Close     domain.CloseKind
	Session   domain.Session
	Err       error
}

type ControllerConfig struct {
	Setup            domain.LiveSetup
	SessionLimit     time.Duration
	ReconnectDelay   time.Duration
	DialTimeout      time.Duration
	RequestTimeout   time.Duration
	WatchdogTick     time.Duration
	WarningLead      time.Duration
	FlushLead        time.Duration
	OutputSampleRate int
	InputMIMEType    string
	// ResumeSessionID, when set, is adopted before the first handshake.
	ResumeSessionID domain.SessionID
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.SessionLimit <= 0 {
		c.SessionLimit = domain.HardSessionLimit
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 15 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.WatchdogTick <= 0 {
		c.WatchdogTick = DefaultWatchdogTick
	}
	if c.OutputSampleRate <= 0 {
		c.OutputSampleRate = DefaultOutputSampleRate
	}
	if c.InputMIMEType == "" {
		c.InputMIMEType = DefaultInputMIMEType
	}
	return c
}

type ControllerOption func(*Controller)

func WithControllerClock(clock ports.Clock) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithControllerMetrics(metrics ports.Metrics) ControllerOption {
	return func(c *Controller) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

type recordRequest struct {
	role     domain.Role
	content  string
	duration time.Duration
	barrier  chan struct{}
}

// Controller drives one live connection at a time through
// idle -> connecting -> live -> reconnecting/closed and keeps the memory
// session in step with it.
type Controller struct {
	dialer      ports.LiveDialer
	credentials ports.CredentialSource
	memory      *MemoryManager
	policy      *ReconnectPolicy
	watchdog    *Watchdog
	cfg         ControllerConfig
	clock       ports.Clock
	logger      *slog.Logger
	metrics     ports.Metrics

	events  chan Event
	records chan recordRequest

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	state         domain.ConnectionState
	conn          ports.LiveConn
	generation    uint64
	establishedAt time.Time
	wanted        bool
	closed        bool
	resumeID      domain.SessionID

	closeOnce sync.Once
}

func NewController(dialer ports.LiveDialer, credentials ports.CredentialSource, memory *MemoryManager, cfg ControllerConfig, opts ...ControllerOption) *Controller {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		dialer:      dialer,
		credentials: credentials,
		memory:      memory,
		policy:      NewReconnectPolicy(cfg.ReconnectDelay),
		cfg:         cfg,
		clock:       ports.SystemClock{},
		logger:      slog.Default(),
		metrics:     ports.NopMetrics{},
		events:      make(chan Event, eventBufferSize),
		records:     make(chan recordRequest, recordBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		state:       domain.ConnectionIdle,
		resumeID:    cfg.ResumeSessionID,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.watchdog = NewWatchdog(cfg.SessionLimit, c.onWatchdogTick,
		WithWatchdogTick(cfg.WatchdogTick),
		WithWatchdogClock(c.clock),
		WithWatchdogLeads(cfg.WarningLead, cfg.FlushLead),
	)

	c.wg.Add(2)
	go c.recordLoop()
	go c.forwardFaults()

	return c
}

func (c *Controller) Events() <-chan Event {
	return c.events
}

func (c *Controller) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) ReconnectAttempt() int {
	return c.policy.Attempt()
}

// Connect opens a live connection. Only a missing credential is fatal;
// transport failures are returned and also hand over to the reconnect policy.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: controller is closed", domain.ErrInvalidState)
	}
	if !c.state.CanConnect() {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot connect while %s", domain.ErrInvalidState, state)
	}
	c.policy.Cancel()
	c.wanted = true
	c.setStateLocked(domain.ConnectionConnecting)
	c.mu.Unlock()

	return c.connect(ctx)
}

func (c *Controller) connect(ctx context.Context) error {
	credential, err := c.credentials.Credential(ctx)
	if err == nil && !credential.Valid() {
		err = errors.New("empty api key")
	}
	if err != nil {
		c.mu.Lock()
		c.wanted = false
		c.setStateLocked(domain.ConnectionClosed)
		c.mu.Unlock()
		return fmt.Errorf("%w: resolve live credential: %w", domain.ErrConfiguration, err)
	}

	setup := c.cfg.Setup
	if setup.Voice == "" {
		setup.Voice = credential.Voice
	}
	setup = c.restore(ctx, setup)

	conn, err := c.dialer.Dial(ctx, credential, setup)
	if err != nil {
		err = fmt.Errorf("%w: open live connection: %w", domain.ErrTransport, err)
		c.emit(Event{Kind: EventFault, Err: err})
		c.mu.Lock()
		wanted := c.wanted
		if wanted {
			c.setStateLocked(domain.ConnectionReconnecting)
		} else {
			c.setStateLocked(domain.ConnectionClosed)
		}
		c.mu.Unlock()
		c.scheduleReconnect(wanted)
		return err
	}

	c.mu.Lock()
	if !c.wanted || c.closed {
		c.mu.Unlock()
		_ = conn.Close(domain.CloseCodeUserInitiated, "user-initiated: disconnected during setup")
		return fmt.Errorf("%w: disconnected during setup", domain.ErrInvalidState)
	}
	c.generation++
	generation := c.generation
	c.conn = conn
	c.establishedAt = c.clock.Now()
	establishedAt := c.establishedAt
	c.setStateLocked(domain.ConnectionLive)
	c.wg.Add(1)
	c.mu.Unlock()

	c.policy.Reset()
	c.metrics.ConnectionEstablished()
	c.logger.Info("live connection established", "model", setup.Model, "voice", setup.Voice)

	c.ensureMemorySession(ctx, setup)
	c.watchdog.Start(establishedAt)

	// A Disconnect that ran since Live was published has already torn down
	// what it saw; undo what was started after it.
	c.mu.Lock()
	superseded := c.generation != generation || !c.wanted
	c.mu.Unlock()
	if superseded {
		c.wg.Done()
		c.watchdog.Stop()
		if err := c.memory.EndSession(ctx); err != nil {
			c.emit(Event{Kind: EventFault, Err: err})
		}
		return fmt.Errorf("%w: disconnected during setup", domain.ErrInvalidState)
	}

	go c.readLoop(generation, conn)
	return nil
}

// restore prefixes the handshake instruction with the restoration prompt
// when resuming a stored session or reconnecting after an unexpected close.
func (c *Controller) restore(ctx context.Context, setup domain.LiveSetup) domain.LiveSetup {
	c.mu.Lock()
	resumeID := c.resumeID
	c.resumeID = ""
	c.mu.Unlock()

	if resumeID != "" && !c.memory.HasSession() {
		sc, err := c.memory.ResumeSession(ctx, resumeID)
		if err != nil {
			c.emit(Event{Kind: EventFault, Err: err})
		} else {
			return setup.WithRestoration(sc.ContextPrompt)
		}
	}

	if c.policy.Attempt() == 0 {
		return setup
	}

	prompt, err := c.memory.ContextForReconnection(ctx)
	if err != nil {
		c.emit(Event{Kind: EventFault, Err: err})
		return setup
	}
	return setup.WithRestoration(prompt)
}

func (c *Controller) ensureMemorySession(ctx context.Context, setup domain.LiveSetup) {
	if session, ok := c.memory.Session(); ok {
		c.emit(Event{Kind: EventSessionStarted, Session: session})
		return
	}

	session, err := c.memory.StartSession(ctx, setup.Model, setup.Voice)
	if err != nil {
		c.emit(Event{Kind: EventFault, Err: err})
		return
	}
	c.emit(Event{Kind: EventSessionStarted, Session: session})
}

// Disconnect closes the connection on the user's behalf and ends the
// memory session. It never schedules a reconnect.
func (c *Controller) Disconnect(ctx context.Context, reason string) error {
	c.mu.Lock()
	c.wanted = false
	conn := c.conn
	c.conn = nil
	c.generation++
	c.setStateLocked(domain.ConnectionClosed)
	c.mu.Unlock()

	c.policy.Cancel()
	c.watchdog.Stop()

	var errs []error
	if conn != nil {
		if err := conn.Close(domain.CloseCodeUserInitiated, closeReason(reason)); err != nil {
			errs = append(errs, fmt.Errorf("%w: close live connection: %w", domain.ErrTransport, err))
		}
		c.metrics.ConnectionClosed(domain.CloseUser)
		c.emit(Event{Kind: EventClosed, Close: domain.CloseUser})
	}

	c.flushRecords(ctx)
	if err := c.memory.EndSession(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Controller) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	conn, err := c.liveConn()
	if err != nil {
		return err
	}
	if err := conn.SendText(ctx, text, true); err != nil {
		return fmt.Errorf("%w: send text: %w", domain.ErrTransport, err)
	}

	c.enqueueRecord(recordRequest{role: domain.RoleUser, content: text})
	return nil
}

func (c *Controller) SendAudio(ctx context.Context, pcm []byte) error {
	conn, err := c.liveConn()
	if err != nil {
		return err
	}
	if err := conn.SendAudio(ctx, pcm, c.cfg.InputMIMEType); err != nil {
		return fmt.Errorf("%w: send audio: %w", domain.ErrTransport, err)
	}
	return nil
}

// Close disconnects if needed and stops the controller's goroutines. The
// memory manager is owned by the caller and is not closed.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		state := c.state
		c.mu.Unlock()

		if state != domain.ConnectionIdle && state != domain.ConnectionClosed {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
			err = c.Disconnect(ctx, "shutdown")
			cancel()
		}

		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.policy.Cancel()
		c.watchdog.Stop()
		c.cancel()
		c.wg.Wait()
	})
	return err
}

func (c *Controller) liveConn() (ports.LiveConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.ConnectionLive || c.conn == nil {
		return nil, fmt.Errorf("%w: not live (%s)", domain.ErrInvalidState, c.state)
	}
	return c.conn, nil
}

func (c *Controller) readLoop(generation uint64, conn ports.LiveConn) {
	defer c.wg.Done()

	var turn turnAccumulator
	for {
		msg, err := conn.Receive(c.ctx)
		if err != nil {
			c.handleClose(generation, err)
			return
		}
		c.handleMessage(&turn, msg)
	}
}

func (c *Controller) handleMessage(turn *turnAccumulator, msg domain.ServerMessage) {
	if msg.Error != "" {
		c.emit(Event{Kind: EventFault, Err: fmt.Errorf("%w: server error: %s", domain.ErrTransport, msg.Error)})
	}
	if msg.GoAway != nil {
		c.logger.Info("live server announced shutdown", "time_left", *msg.GoAway)
	}
	if msg.InputTranscription != "" {
		turn.input.WriteString(msg.InputTranscription)
		c.emit(Event{Kind: EventInputTranscript, Text: msg.InputTranscription})
	}
	if msg.OutputTranscription != "" {
		turn.output.WriteString(msg.OutputTranscription)
		c.emit(Event{Kind: EventOutputTranscript, Text: msg.OutputTranscription})
	}
	if msg.Text != "" {
		turn.text.WriteString(msg.Text)
		c.emit(Event{Kind: EventText, Text: msg.Text})
	}
	if len(msg.Audio) > 0 {
		turn.audioBytes += len(msg.Audio)
		c.emit(Event{Kind: EventAudio, Audio: msg.Audio})
	}
	if msg.Interrupted {
		c.emit(Event{Kind: EventInterrupted})
	}
	if msg.TurnComplete {
		c.recordTurn(turn)
		turn.reset()
		c.emit(Event{Kind: EventTurnComplete})
	}
}

func (c *Controller) recordTurn(turn *turnAccumulator) {
	if input := strings.TrimSpace(turn.input.String()); input != "" {
		c.enqueueRecord(recordRequest{role: domain.RoleUser, content: input})
	}

	reply := strings.TrimSpace(turn.output.String())
	if reply == "" {
		reply = strings.TrimSpace(turn.text.String())
	}
	if reply != "" {
		c.enqueueRecord(recordRequest{
			role:     domain.RoleAssistant,
			content:  reply,
			duration: domain.PCMDuration(turn.audioBytes, c.cfg.OutputSampleRate),
		})
	}
}

func (c *Controller) handleClose(generation uint64, cause error) {
	c.mu.Lock()
	if generation != c.generation || c.state != domain.ConnectionLive {
		c.mu.Unlock()
		return
	}
	duration := c.clock.Now().Sub(c.establishedAt)
	c.conn = nil
	wanted := c.wanted && !c.closed
	if wanted {
		c.setStateLocked(domain.ConnectionReconnecting)
	} else {
		c.setStateLocked(domain.ConnectionClosed)
	}
	c.mu.Unlock()

	c.watchdog.Stop()

	kind := domain.ClassifyClose(duration, c.cfg.SessionLimit)
	c.metrics.ConnectionClosed(kind)
	c.logger.Info("live connection closed", "kind", kind, "duration", duration.Round(time.Second), "error", cause)
	c.emit(Event{Kind: EventClosed, Close: kind, Err: cause})

	if kind == domain.CloseTimeout {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
		err := c.memory.MarkTimeout(ctx)
		cancel()
		if err != nil {
			c.emit(Event{Kind: EventFault, Err: err})
		}
	}

	c.scheduleReconnect(wanted)
}

func (c *Controller) scheduleReconnect(wanted bool) {
	if !c.policy.OnClose(false, wanted, c.retry) {
		return
	}

	attempt := c.policy.Attempt()
	c.metrics.ReconnectScheduled(attempt)
	c.logger.Info("reconnect scheduled", "attempt", attempt, "delay", c.policy.Delay())
	c.emit(Event{Kind: EventReconnectScheduled, Attempt: attempt})
}

func (c *Controller) retry() {
	c.mu.Lock()
	if !c.wanted || c.closed || c.state != domain.ConnectionReconnecting {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(domain.ConnectionConnecting)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.DialTimeout)
	defer cancel()

	if err := c.connect(ctx); err != nil && errors.Is(err, domain.ErrConfiguration) {
		c.emit(Event{Kind: EventFault, Err: err})
	}
}

func (c *Controller) onWatchdogTick(tick WatchdogTick) {
	c.emit(Event{Kind: EventRemaining, Remaining: tick.Remaining})
	for _, event := range tick.Events {
		switch event {
		case WatchdogWarning:
			c.emit(Event{Kind: EventTimeoutWarning, Remaining: tick.Remaining})
		case WatchdogPreTimeoutFlush:
			c.emit(Event{Kind: EventPreTimeoutFlush, Remaining: tick.Remaining})
			c.memory.RequestSummarization()
		}
	}
}

func (c *Controller) enqueueRecord(req recordRequest) {
	select {
	case c.records <- req:
	case <-c.ctx.Done():
	}
}

// flushRecords waits until every queued transcript has been handed to the
// memory manager.
func (c *Controller) flushRecords(ctx context.Context) {
	barrier := make(chan struct{})
	select {
	case c.records <- recordRequest{barrier: barrier}:
	case <-ctx.Done():
		return
	case <-c.ctx.Done():
		return
	}

	select {
	case <-barrier:
	case <-ctx.Done():
	case <-c.ctx.Done():
	}
}

func (c *Controller) recordLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case req := <-c.records:
			if req.barrier != nil {
				close(req.barrier)
				continue
			}

			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
			_, err := c.memory.AddTranscript(ctx, req.role, req.content, req.duration)
			cancel()
			if err != nil {
				c.emit(Event{Kind: EventFault, Err: err})
			}
		}
	}
}

func (c *Controller) forwardFaults() {
	defer c.wg.Done()

	faults := c.memory.Faults()
	for {
		select {
		case <-c.ctx.Done():
			return
		case err := <-faults:
			c.emit(Event{Kind: EventFault, Err: err})
		}
	}
}

func (c *Controller) setStateLocked(state domain.ConnectionState) {
	if c.state == state {
		return
	}
	c.state = state
	c.emit(Event{Kind: EventStateChanged, State: state})
}

func (c *Controller) emit(event Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Debug("dropping controller event", "kind", event.Kind)
	}
}

type turnAccumulator struct {
	input      strings.Builder
	output     strings.Builder
	text       strings.Builder
	audioBytes int
}

func (t *turnAccumulator) reset() {
	t.input.Reset()
	t.output.Reset()
	t.text.Reset()
	t.audioBytes = 0
}

func closeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "user-initiated"
	}
	return "user-initiated: " + reason
}
