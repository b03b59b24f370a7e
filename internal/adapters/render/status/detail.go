package status

import (
	"strings"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const detailWidth = 80

func renderDetail(sc domain.SessionContext, opts RenderOptions, s styles) string {
	session := sc.Session
	lines := []string{
		s.session.Render(sessionTitle(session)),
		detailLine(session, s),
		s.detail.Render(formatUpdated(session.UpdatedAt, opts.Now)),
	}

	if summary := strings.TrimSpace(session.Summary); summary != "" {
		lines = append(lines,
			s.section.Render(s.title.Render("Summary")),
			s.summary.Width(detailWidth).Render(summary),
		)
	}

	lines = append(lines, s.section.Render(s.title.Render("Transcript")))
	if len(sc.Transcripts) == 0 {
		lines = append(lines, s.empty.Render("No transcripts recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, transcript := range sc.Transcripts {
		lines = append(lines, transcriptLine(transcript, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func transcriptLine(transcript domain.Transcript, s styles) string {
	roleColor := lipgloss.Color("39")
	if transcript.Role == domain.RoleUser {
		roleColor = lipgloss.Color("114")
	}
	role := lipgloss.NewStyle().Bold(true).Foreground(roleColor).Render("[" + transcript.Role.Label() + "]:")

	prefix := ""
	if !transcript.Timestamp.IsZero() {
		prefix = s.header.Render(transcript.Timestamp.Format("15:04:05")) + " "
	}

	return prefix + role + " " + s.detail.Render(strings.TrimSpace(transcript.Content))
}
