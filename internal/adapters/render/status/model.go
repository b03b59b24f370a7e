package status

import (
	"errors"
	"io"

	"github.com/bnema/gemini-live-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

// model lays out one view and quits on the first message.
type model struct {
	view   func(styles) string
	styles styles
	output string
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render lays out a session list.
func Render(sessions []domain.Session, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderView(sessions, opts, s)
	})
}

// RenderDetail lays out one session with its summary and transcripts.
func RenderDetail(sc domain.SessionContext, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderDetail(sc, opts, s)
	})
}

func run(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		model{view: view, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
