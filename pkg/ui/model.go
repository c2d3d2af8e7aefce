// Package ui is the terminal chat widget: the bobatea chat model over a
// chat.Conversation, plus a plain line-mode loop for non-interactive input.
package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	boba_chat "github.com/go-go-golems/bobatea/pkg/chat"
	"github.com/go-go-golems/bobatea/pkg/timeline"
	"github.com/go-go-golems/carechat/pkg/render"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

var (
	quitKey = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	copyKey = key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy reply"))
)

// Model wraps the bobatea chat model. It adds the carechat key aliases, the
// typing line and clipboard feedback.
type Model struct {
	inner    tea.Model
	backend  *ExchangeBackend
	renderer *render.TerminalRenderer
	copy     func(string) error
	title    string
	status   *string

	chatOptions []boba_chat.ModelOption
}

type ModelOption func(*Model)

func WithRenderer(r *render.TerminalRenderer) ModelOption {
	return func(m *Model) {
		m.renderer = r
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) ModelOption {
	return func(m *Model) {
		m.copy = fn
	}
}

func WithTitle(title string) ModelOption {
	return func(m *Model) {
		m.title = title
	}
}

// WithChatOptions passes options through to the bobatea chat model.
func WithChatOptions(opts ...boba_chat.ModelOption) ModelOption {
	return func(m *Model) {
		m.chatOptions = append(m.chatOptions, opts...)
	}
}

func NewModel(backend *ExchangeBackend, options ...ModelOption) Model {
	m := Model{
		backend:  backend,
		renderer: render.NewTerminalRenderer(render.DefaultStyles(nil), true),
		copy:     clipboard.WriteAll,
		title:    "Support chat",
		status:   new(string),
	}
	for _, opt := range options {
		opt(&m)
	}

	opts := []boba_chat.ModelOption{
		boba_chat.WithTitle(m.title),
		boba_chat.WithTimelineRegister(RegisterRenderers(m.renderer)),
		boba_chat.WithHeaderView(func() string { return titleStyle.Render(m.title) + "\n" }),
		boba_chat.WithStatusBarView(m.statusLine),
	}
	m.inner = boba_chat.InitialModel(backend, append(opts, m.chatOptions...)...)
	return m
}

// statusLine is always one line high so the timeline does not jump when an
// exchange starts or ends.
func (m Model) statusLine() string {
	switch {
	case !m.backend.IsFinished():
		return statusStyle.Render(render.TypingText + "...")
	case *m.status != "":
		return statusStyle.Render(*m.status)
	}
	return " "
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.inner.Init(), m.backend.SeedTimeline())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m.delegate(boba_chat.QuitMsg{})
		case key.Matches(msg, copyKey):
			*m.status = "nothing to copy yet"
			return m.delegate(boba_chat.CopyLastResponseToClipboardMsg{})
		}

	case timeline.CopyTextRequestedMsg:
		m.copyText(msg.Text)
		return m, nil

	case boba_chat.BackendFinishedMsg:
		*m.status = ""
	}

	return m.delegate(msg)
}

func (m Model) delegate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inner, cmd = m.inner.Update(msg)
	return m, cmd
}

func (m Model) copyText(text string) {
	if err := m.copy(text); err != nil {
		*m.status = "copy failed: " + err.Error()
		return
	}
	*m.status = "reply copied to clipboard"
}

func (m Model) View() string {
	return m.inner.View()
}
