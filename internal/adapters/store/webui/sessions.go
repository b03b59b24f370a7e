package webui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

const (
	sessionsPath    = "/api/v1/gemini/sessions"
	transcriptsPath = "/api/v1/gemini/transcripts/add"
)

// SessionStore persists sessions and transcripts through the backend's
// REST routes.
type SessionStore struct {
	Client *Client
}

func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{Client: client}
}

var _ ports.SessionStore = (*SessionStore)(nil)

type sessionPayload struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Title         *string `json:"title"`
	Summary       *string `json:"summary"`
	Status        string  `json:"status"`
	Model         *string `json:"model"`
	Voice         *string `json:"voice"`
	MessageCount  int     `json:"message_count"`
	LastSummaryAt *int64  `json:"last_summary_at"`
	UpdatedAt     int64   `json:"updated_at"`
	CreatedAt     int64   `json:"created_at"`
}

type transcriptPayload struct {
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	Role          string `json:"role"`
	Content       string `json:"content"`
	AudioDuration *int64 `json:"audio_duration"`
	Timestamp     int64  `json:"timestamp"`
}

type contextPayload struct {
	Session              sessionPayload      `json:"session"`
	Transcripts          []transcriptPayload `json:"transcripts"`
	FormattedTranscripts string              `json:"formatted_transcripts"`
	ContextPrompt        string              `json:"context_prompt"`
}

type createSessionForm struct {
	Model *string `json:"model,omitempty"`
	Voice *string `json:"voice,omitempty"`
}

type updateSessionForm struct {
	Title   *string `json:"title,omitempty"`
	Summary *string `json:"summary,omitempty"`
	Status  *string `json:"status,omitempty"`
}

type createTranscriptForm struct {
	SessionID     string `json:"session_id"`
	Role          string `json:"role"`
	Content       string `json:"content"`
	AudioDuration *int64 `json:"audio_duration,omitempty"`
}

func (s *SessionStore) CreateSession(ctx context.Context, draft domain.SessionDraft) (domain.Session, error) {
	var payload sessionPayload
	form := createSessionForm{Model: optional(draft.Model), Voice: optional(draft.Voice)}
	if err := s.Client.do(ctx, http.MethodPost, sessionsPath+"/create", nil, form, &payload); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return payload.toDomain()
}

func (s *SessionStore) UpdateSession(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, errors.New("session id is required")
	}

	form := updateSessionForm{Title: patch.Title, Summary: patch.Summary}
	if patch.Status != nil {
		status := string(*patch.Status)
		form.Status = &status
	}

	var payload sessionPayload
	path := sessionsPath + "/" + url.PathEscape(string(id)) + "/update"
	if err := s.Client.do(ctx, http.MethodPost, path, nil, form, &payload); err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, notFound(err))
	}
	return payload.toDomain()
}

func (s *SessionStore) AddTranscript(ctx context.Context, draft domain.TranscriptDraft) (domain.Transcript, error) {
	if err := draft.Validate(); err != nil {
		return domain.Transcript{}, err
	}

	form := createTranscriptForm{
		SessionID: string(draft.SessionID),
		Role:      string(draft.Role),
		Content:   draft.Content,
	}
	if draft.AudioDuration > 0 {
		ms := draft.AudioDuration.Milliseconds()
		form.AudioDuration = &ms
	}

	var payload transcriptPayload
	if err := s.Client.do(ctx, http.MethodPost, transcriptsPath, nil, form, &payload); err != nil {
		return domain.Transcript{}, fmt.Errorf("add transcript to %s: %w", draft.SessionID, notFound(err))
	}
	return payload.toDomain(), nil
}

func (s *SessionStore) GetSessionContext(ctx context.Context, id domain.SessionID, limit int) (domain.SessionContext, error) {
	if id == "" {
		return domain.SessionContext{}, errors.New("session id is required")
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("transcript_limit", strconv.Itoa(limit))
	}

	var payload contextPayload
	path := sessionsPath + "/" + url.PathEscape(string(id)) + "/context"
	if err := s.Client.do(ctx, http.MethodGet, path, query, nil, &payload); err != nil {
		return domain.SessionContext{}, fmt.Errorf("load context for %s: %w", id, notFound(err))
	}

	session, err := payload.Session.toDomain()
	if err != nil {
		return domain.SessionContext{}, err
	}
	transcripts := make([]domain.Transcript, 0, len(payload.Transcripts))
	for _, t := range payload.Transcripts {
		transcripts = append(transcripts, t.toDomain())
	}

	formatted := payload.FormattedTranscripts
	if formatted == "" {
		formatted = domain.FormatTranscripts(transcripts)
	}
	prompt := payload.ContextPrompt
	if prompt == "" {
		prompt = domain.BuildContextPrompt(session.Summary, formatted)
	}

	return domain.SessionContext{
		Session:              session,
		Transcripts:          transcripts,
		FormattedTranscripts: formatted,
		ContextPrompt:        prompt,
	}, nil
}

func (s *SessionStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var payload []sessionPayload
	if err := s.Client.do(ctx, http.MethodGet, sessionsPath, query, nil, &payload); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(payload))
	for _, p := range payload {
		session, err := p.toDomain()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (p sessionPayload) toDomain() (domain.Session, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domain.Session{}, errors.New("session response missing id")
	}
	status := domain.SessionStatus(p.Status)
	if status == "" {
		status = domain.SessionStatusActive
	}
	if !status.Valid() {
		return domain.Session{}, fmt.Errorf("session %s has unknown status %q", p.ID, p.Status)
	}

	session := domain.Session{
		ID:           domain.SessionID(p.ID),
		UserID:       p.UserID,
		Title:        deref(p.Title),
		Summary:      deref(p.Summary),
		Status:       status,
		Model:        deref(p.Model),
		Voice:        deref(p.Voice),
		MessageCount: p.MessageCount,
		CreatedAt:    time.Unix(p.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(p.UpdatedAt, 0).UTC(),
	}
	if p.LastSummaryAt != nil {
		at := time.Unix(*p.LastSummaryAt, 0).UTC()
		session.LastSummaryAt = &at
	}
	return session, nil
}

func (p transcriptPayload) toDomain() domain.Transcript {
	transcript := domain.Transcript{
		ID:        domain.TranscriptID(p.ID),
		SessionID: domain.SessionID(p.SessionID),
		Role:      domain.Role(p.Role),
		Content:   p.Content,
		Timestamp: time.Unix(p.Timestamp, 0).UTC(),
	}
	if p.AudioDuration != nil {
		transcript.AudioDuration = time.Duration(*p.AudioDuration) * time.Millisecond
	}
	return transcript
}

func notFound(err error) error {
	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %w", domain.ErrSessionNotFound, err)
	}
	return err
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
