package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

// Service backs the CLI commands that do not hold a live connection.
type Service struct {
	store       ports.SessionStore
	history     ports.HistoryRepository
	secrets     ports.SecretStore
	credentials ports.CredentialSource
	clock       ports.Clock
}

func NewService(store ports.SessionStore, history ports.HistoryRepository, secrets ports.SecretStore, credentials ports.CredentialSource, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		store:       store,
		history:     history,
		secrets:     secrets,
		credentials: credentials,
		clock:       clock,
	}
}

func (s *Service) SetAPIKey(ctx context.Context, cmd SetAPIKeyCommand) error {
	value := strings.TrimSpace(cmd.Value)
	if value == "" {
		return fmt.Errorf("%w: api key is empty", domain.ErrConfiguration)
	}

	if err := s.secrets.Put(ctx, cmd.SecretKey, value); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	return nil
}

func (s *Service) RemoveAPIKey(ctx context.Context, cmd RemoveAPIKeyCommand) error {
	if err := s.secrets.Delete(ctx, cmd.SecretKey); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// APIKeyStatus resolves the credential chain without connecting.
func (s *Service) APIKeyStatus(ctx context.Context) APIKeyStatus {
	credential, err := s.credentials.Credential(ctx)
	if err != nil {
		return APIKeyStatus{Err: err}
	}
	return APIKeyStatus{Found: credential.Valid(), Source: credential.Source}
}

func (s *Service) ListSessions(ctx context.Context, query ListSessionsQuery) ([]domain.Session, error) {
	if query.Local {
		entries, err := s.history.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list local history: %w", err)
		}
		if query.Limit > 0 && len(entries) > query.Limit {
			entries = entries[:query.Limit]
		}

		sessions := make([]domain.Session, 0, len(entries))
		for _, entry := range entries {
			sessions = append(sessions, sessionFromHistory(entry))
		}
		return sessions, nil
	}

	sessions, err := s.store.ListSessions(ctx, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %w", domain.ErrPersistence, err)
	}
	return sessions, nil
}

func (s *Service) SessionContext(ctx context.Context, query SessionContextQuery) (domain.SessionContext, error) {
	if strings.TrimSpace(string(query.ID)) == "" {
		return domain.SessionContext{}, errors.New("session id is required")
	}

	sc, err := s.store.GetSessionContext(ctx, query.ID, query.TranscriptLimit)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.SessionContext{}, err
		}
		return domain.SessionContext{}, fmt.Errorf("%w: get session context: %w", domain.ErrPersistence, err)
	}
	return sc, nil
}

// ResolveResume returns the session a connect should continue, or an empty
// ID for a fresh session.
func (s *Service) ResolveResume(ctx context.Context, cmd ResumeCommand) (domain.SessionID, error) {
	id := domain.SessionID(strings.TrimSpace(string(cmd.SessionID)))
	if id != "" && cmd.Last {
		return "", errors.New("choose either a session id or the last session, not both")
	}
	if id != "" {
		return id, nil
	}
	if !cmd.Last {
		return "", nil
	}

	entry, err := s.history.Last(ctx)
	if err != nil {
		return "", fmt.Errorf("find last session: %w", err)
	}
	return entry.SessionID, nil
}

// RecordHistory remembers a session started or resumed from this machine.
func (s *Service) RecordHistory(ctx context.Context, cmd RecordHistoryCommand) error {
	now := s.clock.Now()
	entry := domain.HistoryEntry{
		SessionID: cmd.Session.ID,
		Model:     cmd.Session.Model,
		Voice:     cmd.Session.Voice,
		Backend:   cmd.Backend,
		StartedAt: cmd.Session.CreatedAt,
		LastSeen:  now,
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = now
	}

	if err := s.history.Record(ctx, entry); err != nil {
		return fmt.Errorf("record local history: %w", err)
	}
	return nil
}

func sessionFromHistory(entry domain.HistoryEntry) domain.Session {
	return domain.Session{
		ID:        entry.SessionID,
		Model:     entry.Model,
		Voice:     entry.Voice,
		CreatedAt: entry.StartedAt,
		UpdatedAt: entry.LastSeen,
	}
}
