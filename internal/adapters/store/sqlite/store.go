package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const DefaultUserID = "local"

//go:embed migrations/*.sql
var migrations embed.FS

// Store keeps sessions and transcripts in a local SQLite database using the
// same tables as the web backend.
type Store struct {
	db     *sql.DB
	userID string
	clock  ports.Clock
}

type Option func(*Store)

func WithUserID(userID string) Option {
	return func(s *Store) {
		if strings.TrimSpace(userID) != "" {
			s.userID = userID
		}
	}
}

func WithClock(clock ports.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

var _ ports.SessionStore = (*Store)(nil)

// Open creates the database file if needed and applies pending migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	s := &Store{db: db, userID: DefaultUserID, clock: ports.SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrationsFS, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrationsFS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

func (s *Store) CreateSession(ctx context.Context, draft domain.SessionDraft) (domain.Session, error) {
	now := s.now()
	session := domain.Session{
		ID:        domain.SessionID(uuid.New().String()),
		UserID:    s.userID,
		Status:    domain.SessionStatusActive,
		Model:     strings.TrimSpace(draft.Model),
		Voice:     strings.TrimSpace(draft.Voice),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gemini_session (id, user_id, status, model, voice, message_count, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		string(session.ID), session.UserID, string(session.Status),
		nullString(session.Model), nullString(session.Voice),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

func (s *Store) UpdateSession(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	session, err := getSession(ctx, tx, id)
	if err != nil {
		return domain.Session{}, err
	}
	updated, err := patch.Apply(session, s.now())
	if err != nil {
		return domain.Session{}, err
	}

	var lastSummaryAt sql.NullInt64
	if updated.LastSummaryAt != nil {
		lastSummaryAt = sql.NullInt64{Int64: updated.LastSummaryAt.Unix(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE gemini_session
		SET title = ?, summary = ?, status = ?, last_summary_at = ?, updated_at = ?
		WHERE id = ?`,
		nullString(updated.Title), nullString(updated.Summary), string(updated.Status),
		lastSummaryAt, updated.UpdatedAt.Unix(), string(id),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (s *Store) AddTranscript(ctx context.Context, draft domain.TranscriptDraft) (domain.Transcript, error) {
	if err := draft.Validate(); err != nil {
		return domain.Transcript{}, err
	}

	now := s.now()
	transcript := domain.Transcript{
		ID:            domain.TranscriptID(uuid.New().String()),
		SessionID:     draft.SessionID,
		Role:          draft.Role,
		Content:       draft.Content,
		AudioDuration: draft.AudioDuration.Truncate(time.Millisecond),
		Timestamp:     now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("begin transcript: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE gemini_session SET message_count = message_count + 1, updated_at = ? WHERE id = ?`,
		now.Unix(), string(draft.SessionID),
	)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("bump message count: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.Transcript{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, draft.SessionID)
	}

	var audioDuration sql.NullInt64
	if transcript.AudioDuration > 0 {
		audioDuration = sql.NullInt64{Int64: transcript.AudioDuration.Milliseconds(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO gemini_transcript (id, session_id, role, content, audio_duration, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(transcript.ID), string(transcript.SessionID), string(transcript.Role),
		transcript.Content, audioDuration, now.Unix(),
	)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("insert transcript: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Transcript{}, fmt.Errorf("commit transcript: %w", err)
	}
	return transcript, nil
}

// GetSessionContext returns the session with its latest limit transcripts in
// chronological order. A non-positive limit returns all of them.
func (s *Store) GetSessionContext(ctx context.Context, id domain.SessionID, limit int) (domain.SessionContext, error) {
	session, err := getSession(ctx, s.db, id)
	if err != nil {
		return domain.SessionContext{}, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, audio_duration, timestamp
		FROM gemini_transcript
		WHERE session_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`,
		string(id), limit,
	)
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("query transcripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transcripts []domain.Transcript
	for rows.Next() {
		transcript, err := scanTranscript(rows)
		if err != nil {
			return domain.SessionContext{}, err
		}
		transcripts = append(transcripts, transcript)
	}
	if err := rows.Err(); err != nil {
		return domain.SessionContext{}, fmt.Errorf("read transcripts: %w", err)
	}

	for i, j := 0, len(transcripts)-1; i < j; i, j = i+1, j-1 {
		transcripts[i], transcripts[j] = transcripts[j], transcripts[i]
	}

	formatted := domain.FormatTranscripts(transcripts)
	return domain.SessionContext{
		Session:              session,
		Transcripts:          transcripts,
		FormattedTranscripts: formatted,
		ContextPrompt:        domain.BuildContextPrompt(session.Summary, formatted),
	}, nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM gemini_session
		WHERE user_id = ?
		ORDER BY updated_at DESC, rowid DESC
		LIMIT ?`,
		s.userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	return sessions, nil
}

const sessionColumns = `id, user_id, title, summary, status, model, voice, message_count, last_summary_at, updated_at, created_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getSession(ctx context.Context, q queryer, id domain.SessionID) (domain.Session, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM gemini_session WHERE id = ?`, string(id))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return session, err
}

func scanSession(row scanner) (domain.Session, error) {
	var (
		id                          string
		userID, title, summary      sql.NullString
		status, model, voice        sql.NullString
		messageCount, lastSummaryAt sql.NullInt64
		updatedAt, createdAt        sql.NullInt64
	)
	if err := row.Scan(&id, &userID, &title, &summary, &status, &model, &voice, &messageCount, &lastSummaryAt, &updatedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}

	if !status.Valid || status.String == "" {
		status.String = string(domain.SessionStatusActive)
	}
	session := domain.Session{
		ID:           domain.SessionID(id),
		UserID:       userID.String,
		Title:        title.String,
		Summary:      summary.String,
		Status:       domain.SessionStatus(status.String),
		Model:        model.String,
		Voice:        voice.String,
		MessageCount: int(messageCount.Int64),
		CreatedAt:    time.Unix(createdAt.Int64, 0).UTC(),
		UpdatedAt:    time.Unix(updatedAt.Int64, 0).UTC(),
	}
	if lastSummaryAt.Valid {
		at := time.Unix(lastSummaryAt.Int64, 0).UTC()
		session.LastSummaryAt = &at
	}
	return session, nil
}

func scanTranscript(row scanner) (domain.Transcript, error) {
	var (
		id                       string
		sessionID, role, content sql.NullString
		audioDuration, timestamp sql.NullInt64
	)
	if err := row.Scan(&id, &sessionID, &role, &content, &audioDuration, &timestamp); err != nil {
		return domain.Transcript{}, fmt.Errorf("scan transcript: %w", err)
	}
	return domain.Transcript{
		ID:            domain.TranscriptID(id),
		SessionID:     domain.SessionID(sessionID.String),
		Role:          domain.Role(role.String),
		Content:       content.String,
		AudioDuration: time.Duration(audioDuration.Int64) * time.Millisecond,
		Timestamp:     time.Unix(timestamp.Int64, 0).UTC(),
	}, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
