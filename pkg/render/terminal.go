package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/markup"
)

// Styles groups the lipgloss styles the terminal renderer uses.
type Styles struct {
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Bold      lipgloss.Style
	Banner    lipgloss.Style
	Typing    lipgloss.Style
}

func DefaultStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		UserLabel: r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		BotLabel:  r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Bold:      r.NewStyle().Bold(true),
		Banner: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1),
		Typing: r.NewStyle().Faint(true).Italic(true),
	}
}

// TerminalRenderer renders a View as styled text for a terminal.
type TerminalRenderer struct {
	Styles Styles
	Pretty bool
}

func NewTerminalRenderer(styles Styles, pretty bool) *TerminalRenderer {
	return &TerminalRenderer{Styles: styles, Pretty: pretty}
}

// Render lays the view out for width columns (0 disables wrapping). spinner
// is prepended to the typing indicator.
func (t *TerminalRenderer) Render(v View, width int, spinner string) string {
	parts := make([]string, 0, len(v.Blocks))
	for _, b := range v.Blocks {
		parts = append(parts, t.Block(b, v.Helplines, width, spinner))
	}
	return strings.Join(parts, "\n\n")
}

func (t *TerminalRenderer) Block(b Block, helplines []Helpline, width int, spinner string) string {
	switch b.Kind {
	case BlockCrisisBanner:
		lines := []string{b.Text}
		for _, h := range helplines {
			lines = append(lines, "• "+h.Name+": "+h.Number)
		}
		style := t.Styles.Banner
		if width > 4 {
			style = style.Width(width - 2)
		}
		return style.Render(strings.Join(lines, "\n"))

	case BlockTyping:
		text := b.Text + "..."
		if spinner != "" {
			text = spinner + " " + text
		}
		return t.Styles.Typing.Render(text)

	default:
		label := t.Styles.BotLabel.Render("Assistant:")
		body := b.Text
		if b.Sender == chat.SenderUser {
			label = t.Styles.UserLabel.Render("You:")
		} else if t.Pretty {
			body = markup.Terminal(b.Text, t.Styles.Bold)
		}
		out := label + " " + body
		if width > 0 {
			out = lipgloss.NewStyle().Width(width).Render(out)
		}
		return out
	}
}
