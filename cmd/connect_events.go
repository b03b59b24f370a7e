package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	statusadapter "github.com/bnema/gemini-live-cli/internal/adapters/render/status"
	"github.com/bnema/gemini-live-cli/internal/application"
	"github.com/bnema/gemini-live-cli/internal/domain"
)

// eventPrinter writes the conversation to out and connection status to
// status. Replies are buffered until the turn completes.
type eventPrinter struct {
	out       io.Writer
	status    io.Writer
	limit     time.Duration
	onSession func(domain.Session)

	mu        sync.Mutex
	state     domain.ConnectionState
	remaining time.Duration
	heard     strings.Builder
	spoken    strings.Builder
	text      strings.Builder
}

func newEventPrinter(out, status io.Writer, limit time.Duration, onSession func(domain.Session)) *eventPrinter {
	return &eventPrinter{out: out, status: status, limit: limit, onSession: onSession}
}

func (p *eventPrinter) handle(event application.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Kind {
	case application.EventStateChanged:
		p.state = event.State
	case application.EventSessionStarted:
		fmt.Fprintf(p.status, "session %s (%s)\n", event.Session.ID, event.Session.Status)
		if p.onSession != nil {
			p.onSession(event.Session)
		}
	case application.EventText:
		p.text.WriteString(event.Text)
	case application.EventOutputTranscript:
		p.spoken.WriteString(event.Text)
	case application.EventInputTranscript:
		p.heard.WriteString(event.Text)
	case application.EventTurnComplete:
		p.flushTurnLocked("")
	case application.EventInterrupted:
		p.flushTurnLocked(" [interrupted]")
	case application.EventRemaining:
		p.remaining = event.Remaining
	case application.EventTimeoutWarning:
		p.remaining = event.Remaining
		fmt.Fprintln(p.status, statusadapter.RemainingLine(event.Remaining, p.limit))
	case application.EventPreTimeoutFlush:
		fmt.Fprintln(p.status, "saving a summary before the session limit")
	case application.EventClosed:
		if event.Err != nil && event.Close != domain.CloseUser {
			fmt.Fprintf(p.status, "connection closed (%s): %v\n", event.Close, event.Err)
			return
		}
		fmt.Fprintf(p.status, "connection closed (%s)\n", event.Close)
	case application.EventReconnectScheduled:
		fmt.Fprintf(p.status, "reconnecting (attempt %d)...\n", event.Attempt)
	case application.EventFault:
		fmt.Fprintf(p.status, "error: %v\n", event.Err)
	}
}

func (p *eventPrinter) flushTurnLocked(suffix string) {
	if heard := strings.TrimSpace(p.heard.String()); heard != "" {
		fmt.Fprintf(p.out, "you: %s\n", heard)
	}

	reply := strings.TrimSpace(p.spoken.String())
	if reply == "" {
		reply = strings.TrimSpace(p.text.String())
	}
	if reply != "" {
		fmt.Fprintf(p.out, "gemini: %s%s\n", reply, suffix)
	}

	p.heard.Reset()
	p.spoken.Reset()
	p.text.Reset()
}

// statusLine describes the connection for the /status command.
func (p *eventPrinter) statusLine() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.state
	if state == "" {
		state = domain.ConnectionIdle
	}
	if state != domain.ConnectionLive {
		return fmt.Sprintf("state: %s", state)
	}
	return fmt.Sprintf("state: %s  %s", state, statusadapter.RemainingLine(p.remaining, p.limit))
}
