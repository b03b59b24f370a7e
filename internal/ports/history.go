package ports

import (
	"context"

	"github.com/bnema/gemini-live-cli/internal/domain"
)

// HistoryRepository remembers which sessions were started from this machine.
type HistoryRepository interface {
	Record(ctx context.Context, entry domain.HistoryEntry) error
	Last(ctx context.Context) (domain.HistoryEntry, error)
	List(ctx context.Context) ([]domain.HistoryEntry, error)
}
