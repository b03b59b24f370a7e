package ports

import (
	"context"

	"github.com/bnema/gemini-live-cli/internal/domain"
)

// SessionStore persists sessions and their transcripts. It is the source of
// truth; the memory manager only keeps a cache of the current session.
type SessionStore interface {
	CreateSession(ctx context.Context, draft domain.SessionDraft) (domain.Session, error)
	UpdateSession(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error)
	AddTranscript(ctx context.Context, draft domain.TranscriptDraft) (domain.Transcript, error)
	GetSessionContext(ctx context.Context, id domain.SessionID, transcriptLimit int) (domain.SessionContext, error)
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)
}
