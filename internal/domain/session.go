package domain

import (
	"strings"
	"time"
)

type SessionID string

type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusTimeout SessionStatus = "timeout"
	SessionStatusEnded   SessionStatus = "ended"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusTimeout, SessionStatusEnded:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a session may move from s to next.
// Statuses only move forward: active -> timeout -> ended, or active -> ended.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusActive:
		return next == SessionStatusTimeout || next == SessionStatusEnded
	case SessionStatusTimeout:
		return next == SessionStatusEnded
	default:
		return false
	}
}

// Session is one persisted conversational episode. It may span several
// transport connections.
type Session struct {
	ID            SessionID
	UserID        string
	Title         string
	Summary       string
	Status        SessionStatus
	Model         string
	Voice         string
	MessageCount  int
	LastSummaryAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayTitle falls back to the session ID when no title was set.
func (s Session) DisplayTitle() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	return string(s.ID)
}

type SessionDraft struct {
	Model string
	Voice string
}

// SessionPatch carries a partial update; nil fields are left untouched.
type SessionPatch struct {
	Title   *string
	Summary *string
	Status  *SessionStatus
}

func (p SessionPatch) IsEmpty() bool {
	return p.Title == nil && p.Summary == nil && p.Status == nil
}

// Apply returns a copy of session with the patch applied. A summary update
// also stamps LastSummaryAt.
func (p SessionPatch) Apply(session Session, now time.Time) (Session, error) {
	if p.Status != nil && *p.Status != session.Status {
		if !session.Status.CanTransitionTo(*p.Status) {
			return Session{}, &StatusTransitionError{From: session.Status, To: *p.Status}
		}
		session.Status = *p.Status
	}
	if p.Title != nil {
		session.Title = *p.Title
	}
	if p.Summary != nil {
		session.Summary = *p.Summary
		stamped := now
		session.LastSummaryAt = &stamped
	}
	session.UpdatedAt = now
	return session, nil
}

func StatusPatch(status SessionStatus) SessionPatch {
	return SessionPatch{Status: &status}
}

func SummaryPatch(summary string) SessionPatch {
	return SessionPatch{Summary: &summary}
}
