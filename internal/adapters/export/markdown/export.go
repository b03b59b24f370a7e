package markdown

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"gopkg.in/yaml.v3"
)

type frontmatter struct {
	SessionID     string `yaml:"session_id"`
	Title         string `yaml:"title,omitempty"`
	Status        string `yaml:"status"`
	Model         string `yaml:"model,omitempty"`
	Voice         string `yaml:"voice,omitempty"`
	MessageCount  int    `yaml:"message_count"`
	CreatedAt     string `yaml:"created_at,omitempty"`
	UpdatedAt     string `yaml:"updated_at,omitempty"`
	LastSummaryAt string `yaml:"last_summary_at,omitempty"`
	Transcripts   int    `yaml:"transcripts"`
}

// Render writes a session and its transcripts as markdown with a YAML
// frontmatter header.
func Render(sc domain.SessionContext) ([]byte, error) {
	session := sc.Session
	fm := frontmatter{
		SessionID:    string(session.ID),
		Title:        session.Title,
		Status:       string(session.Status),
		Model:        session.Model,
		Voice:        session.Voice,
		MessageCount: session.MessageCount,
		CreatedAt:    formatTime(session.CreatedAt),
		UpdatedAt:    formatTime(session.UpdatedAt),
		Transcripts:  len(sc.Transcripts),
	}
	if session.LastSummaryAt != nil {
		fm.LastSummaryAt = formatTime(*session.LastSummaryAt)
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n", session.DisplayTitle())

	if summary := strings.TrimSpace(session.Summary); summary != "" {
		buf.WriteString("\n## Summary\n\n")
		buf.WriteString(summary)
		buf.WriteString("\n")
	}

	buf.WriteString("\n## Transcript\n")
	if len(sc.Transcripts) == 0 {
		buf.WriteString("\n_No transcripts recorded._\n")
	}
	for _, transcript := range sc.Transcripts {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "**%s**", transcript.Role.Label())
		if !transcript.Timestamp.IsZero() {
			fmt.Fprintf(&buf, " _%s_", transcript.Timestamp.UTC().Format(time.TimeOnly))
		}
		if transcript.AudioDuration > 0 {
			fmt.Fprintf(&buf, " (%s audio)", transcript.AudioDuration.Round(time.Millisecond))
		}
		buf.WriteString("\n\n")
		buf.WriteString(strings.TrimSpace(transcript.Content))
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// WriteFile renders sc to path, creating parent directories.
func WriteFile(path string, sc domain.SessionContext) error {
	data, err := Render(sc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
