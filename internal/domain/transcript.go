package domain

import (
	"fmt"
	"strings"
	"time"
)

type TranscriptID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Label is the uppercase tag used when a turn is rendered for a model
// prompt. Anything that is not the user speaking is attributed to the model.
func (r Role) Label() string {
	if r == RoleUser {
		return "USER"
	}
	return "GEMINI"
}

type Transcript struct {
	ID            TranscriptID
	SessionID     SessionID
	Role          Role
	Content       string
	AudioDuration time.Duration
	Timestamp     time.Time
}

type TranscriptDraft struct {
	SessionID     SessionID
	Role          Role
	Content       string
	AudioDuration time.Duration
}

func (d TranscriptDraft) Validate() error {
	if d.SessionID == "" {
		return fmt.Errorf("transcript session id is required")
	}
	if !d.Role.Valid() {
		return fmt.Errorf("invalid transcript role %q", d.Role)
	}
	return nil
}

// Turn is one entry of the in-process conversation buffer.
type Turn struct {
	Role          Role
	Content       string
	AudioDuration time.Duration
}

// SessionContext is what a store hands back when a session is resumed or
// a reconnect needs restoring.
type SessionContext struct {
	Session              Session
	Transcripts          []Transcript
	FormattedTranscripts string
	ContextPrompt        string
}

func FormatTranscripts(transcripts []Transcript) string {
	lines := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		lines = append(lines, fmt.Sprintf("[%s]: %s", t.Role.Label(), t.Content))
	}
	return strings.Join(lines, "\n")
}

func FormatTurns(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("[%s]: %s", t.Role.Label(), t.Content))
	}
	return strings.Join(lines, "\n")
}

// BuildContextPrompt renders the restoration prompt injected into a new
// handshake. It returns "" when there is nothing to restore.
func BuildContextPrompt(summary, formatted string) string {
	summary = strings.TrimSpace(summary)
	formatted = strings.TrimSpace(formatted)
	if summary == "" && formatted == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("You are continuing a conversation that was interrupted by a connection reset. ")
	b.WriteString("Pick up naturally without greeting the user again.\n")
	if summary != "" {
		b.WriteString("\n## Conversation summary\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}
	if formatted != "" {
		b.WriteString("\n## Most recent exchanges\n")
		b.WriteString(formatted)
		b.WriteString("\n")
	}
	return b.String()
}

// PCMDuration converts a little-endian 16-bit mono PCM byte count to its
// playback duration.
func PCMDuration(byteCount int, sampleRate int) time.Duration {
	if byteCount <= 0 || sampleRate <= 0 {
		return 0
	}
	samples := byteCount / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
