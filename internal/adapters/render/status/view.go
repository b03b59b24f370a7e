package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	summaryWidth = 72
	barWidth     = 24
)

type RenderOptions struct {
	Now   time.Time
	Title string
}

func renderView(sessions []domain.Session, opts RenderOptions, s styles) string {
	title := opts.Title
	if title == "" {
		title = "Gemini Live Sessions"
	}
	lines := []string{
		s.title.Render(title),
		s.header.Render(fmt.Sprintf("sessions: %d", len(sessions))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session domain.Session, opts RenderOptions, s styles) string {
	parts := []string{
		s.session.Render(sessionTitle(session)),
		detailLine(session, s),
		s.detail.Render(formatUpdated(session.UpdatedAt, opts.Now)),
	}

	if summary := strings.TrimSpace(session.Summary); summary != "" {
		parts = append(parts, s.summary.Render(truncate(summary, summaryWidth)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionTitle(session domain.Session) string {
	title := session.DisplayTitle()
	if title == string(session.ID) {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, session.ID)
}

func detailLine(session domain.Session, s styles) string {
	status := string(session.Status)
	if status == "" {
		status = "local"
	}
	statusStyle := lipgloss.NewStyle().Foreground(statusColor(session.Status))

	fields := []string{statusStyle.Render(status)}
	if session.MessageCount > 0 {
		fields = append(fields, fmt.Sprintf("messages: %d", session.MessageCount))
	}
	if session.Model != "" {
		fields = append(fields, "model: "+session.Model)
	}
	if session.Voice != "" {
		fields = append(fields, "voice: "+session.Voice)
	}

	return s.detail.Render(strings.Join(fields, "  "))
}

// RemainingLine renders how much of the connection window is left, for
// example "window: [==========----] 7m12s left".
func RemainingLine(remaining, limit time.Duration) string {
	s := newStyles()
	if limit <= 0 {
		return s.windowKey.Render("window: n/a")
	}
	if remaining < 0 {
		remaining = 0
	}

	leftPercent := clampPercent(100 * remaining.Seconds() / limit.Seconds())
	label := s.windowKey.Render("window:")
	bar := renderProgressBar(100-leftPercent, barWidth, s)
	meta := lipgloss.NewStyle().
		Foreground(interpolateColor(leftPercent, 0, 100)).
		Render(fmt.Sprintf("%s left", remaining.Truncate(time.Second)))

	line := lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", meta)
	if remaining <= time.Minute {
		line += " " + s.warning.Render("[reconnect soon]")
	}

	return line
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	leftFraction := (100.0 - used) / 100.0
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatUpdated(updatedAt, now time.Time) string {
	if updatedAt.IsZero() {
		return "updated: unknown"
	}
	if now.IsZero() {
		return "updated " + updatedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(updatedAt)
	if elapsed < time.Minute {
		return fmt.Sprintf("updated just now (%s)", updatedAt.Format("15:04"))
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("updated %s ago (%s)", plural(int(elapsed.Minutes()), "minute"), updatedAt.Format("15:04"))
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("updated %s ago (%s)", plural(int(elapsed.Hours()), "hour"), updatedAt.Format("15:04"))
	}

	return fmt.Sprintf("updated %s ago (%s)", plural(int(elapsed.Hours()/24), "day"), updatedAt.Format("15:04 on 02 Jan"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-3]) + "..."
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale: 240 is faded, 255 is bright white.
	baseColor := 240.0
	targetColor := 255.0

	interpolated := baseColor + (targetColor-baseColor)*normalized
	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}
