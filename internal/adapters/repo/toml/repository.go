package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	DefaultMaxEntries = 100
)

// Repository keeps the local session history in a TOML file.
type Repository struct {
	path       string
	maxEntries int
	mu         *sync.RWMutex
}

var _ ports.HistoryRepository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Repository{path: absPath, maxEntries: DefaultMaxEntries, mu: LockForPath(absPath)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

// Record inserts entry or refreshes the existing entry for the same session.
// The original start time survives a refresh.
func (r *Repository) Record(ctx context.Context, entry domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.SessionID == "" {
		return errors.New("history entry has no session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(entry)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].SessionID == encoded.SessionID {
			if file.Sessions[i].StartedAt != "" {
				encoded.StartedAt = file.Sessions[i].StartedAt
			}
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	sortNewestFirst(file.Sessions)
	if r.maxEntries > 0 && len(file.Sessions) > r.maxEntries {
		file.Sessions = file.Sessions[:r.maxEntries]
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Last(ctx context.Context) (domain.HistoryEntry, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	if len(entries) == 0 {
		return domain.HistoryEntry{}, domain.ErrHistoryEmpty
	}
	return entries[0], nil
}

// List returns entries most recently seen first.
func (r *Repository) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(file.Sessions)

	entries := make([]domain.HistoryEntry, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		entries = append(entries, fromSchema(entry))
	}

	return entries, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := fileSchema{}
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read history file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode history file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode history file: %w", err)
	}

	if err := WriteFileAtomic(r.path, data, fileMode); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}

func sortNewestFirst(entries []historySchema) {
	sort.SliceStable(entries, func(i, j int) bool {
		return parseTime(entries[i].LastSeen).After(parseTime(entries[j].LastSeen))
	})
}

func toSchema(entry domain.HistoryEntry) historySchema {
	lastSeen := entry.LastSeen
	if lastSeen.IsZero() {
		lastSeen = entry.StartedAt
	}

	return historySchema{
		SessionID: string(entry.SessionID),
		Model:     entry.Model,
		Voice:     entry.Voice,
		Backend:   entry.Backend,
		StartedAt: formatTime(entry.StartedAt),
		LastSeen:  formatTime(lastSeen),
	}
}

func fromSchema(entry historySchema) domain.HistoryEntry {
	return domain.HistoryEntry{
		SessionID: domain.SessionID(entry.SessionID),
		Model:     entry.Model,
		Voice:     entry.Voice,
		Backend:   entry.Backend,
		StartedAt: parseTime(entry.StartedAt),
		LastSeen:  parseTime(entry.LastSeen),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
