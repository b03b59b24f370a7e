package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/gemini-live-cli/internal/ports"
)

const (
	DefaultWarningLead  = 60 * time.Second
	DefaultFlushLead    = 10 * time.Second
	DefaultWatchdogTick = time.Second
)

type WatchdogEvent string

const (
	WatchdogWarning         WatchdogEvent = "warning"
	WatchdogPreTimeoutFlush WatchdogEvent = "pre_timeout_flush"
)

type WatchdogTick struct {
	Remaining time.Duration
	Events    []WatchdogEvent
}

type WatchdogOption func(*Watchdog)

func WithWatchdogTick(d time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		if d > 0 {
			w.tick = d
		}
	}
}

func WithWatchdogClock(clock ports.Clock) WatchdogOption {
	return func(w *Watchdog) {
		if clock != nil {
			w.clock = clock
		}
	}
}

func WithWatchdogLeads(warning, flush time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		if warning > 0 {
			w.warningLead = warning
		}
		if flush > 0 {
			w.flushLead = flush
		}
	}
}

// Watchdog counts down the hard session limit of one live connection and
// fires the warning and the pre-timeout flush once each per episode.
type Watchdog struct {
	limit       time.Duration
	warningLead time.Duration
	flushLead   time.Duration
	tick        time.Duration
	clock       ports.Clock
	notify      func(WatchdogTick)

	mu      sync.Mutex
	warned  bool
	flushed bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewWatchdog(limit time.Duration, notify func(WatchdogTick), opts ...WatchdogOption) *Watchdog {
	if notify == nil {
		notify = func(WatchdogTick) {}
	}

	w := &Watchdog{
		limit:       limit,
		warningLead: DefaultWarningLead,
		flushLead:   DefaultFlushLead,
		tick:        DefaultWatchdogTick,
		clock:       ports.SystemClock{},
		notify:      notify,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe evaluates one tick. Thresholds are crossed with <= so irregular
// tick spacing cannot skip an event, and the fired flags keep each event
// to a single emission.
func (w *Watchdog) Observe(elapsed time.Duration) WatchdogTick {
	remaining := max(w.limit-elapsed, 0)

	w.mu.Lock()
	defer w.mu.Unlock()

	tick := WatchdogTick{Remaining: remaining}
	if !w.warned && remaining <= w.warningLead {
		w.warned = true
		tick.Events = append(tick.Events, WatchdogWarning)
	}
	if !w.flushed && remaining <= w.flushLead {
		w.flushed = true
		tick.Events = append(tick.Events, WatchdogPreTimeoutFlush)
	}
	return tick
}

// Start begins a new episode counted from startedAt, replacing any
// running one.
func (w *Watchdog) Start(startedAt time.Time) {
	w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w.mu.Lock()
	w.warned = false
	w.flushed = false
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.run(ctx, startedAt, done)
}

// Stop ends the running episode and waits for its loop to exit. It must
// not be called from the notify callback.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watchdog) run(ctx context.Context, startedAt time.Time, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick := w.Observe(w.clock.Now().Sub(startedAt))
			w.notify(tick)
			if tick.Remaining == 0 {
				return
			}
		}
	}
}
