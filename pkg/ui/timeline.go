package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bobatea/pkg/timeline"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/markup"
	"github.com/go-go-golems/carechat/pkg/render"
)

const (
	// MessageKind is the kind the chat model uses for user and assistant
	// messages; registering it replaces the markdown renderer.
	MessageKind        = "llm_text"
	MessageRendererKey = "renderer.carechat.message.v1"

	CrisisBannerKind        = "crisis_banner"
	CrisisBannerRendererKey = "renderer.carechat.crisis_banner.v1"
)

// timelineCursor remembers which conversation messages are already on the
// timeline, and whether the crisis banner is.
type timelineCursor struct {
	next        int
	skipped     map[int]bool
	bannerShown bool
}

func newTimelineCursor() timelineCursor {
	return timelineCursor{skipped: map[int]bool{}}
}

// skip marks message i as put on the timeline by the chat model itself.
func (c *timelineCursor) skip(i int) {
	c.skipped[i] = true
}

// advance returns the entity messages for everything st gained since the
// last call.
func (c *timelineCursor) advance(st chat.State) []tea.Msg {
	var out []tea.Msg
	for i := c.next; i < len(st.Messages); i++ {
		if c.skipped[i] {
			delete(c.skipped, i)
			continue
		}
		out = append(out, messageEntity(i, st.Messages[i])...)
	}
	if len(st.Messages) > c.next {
		c.next = len(st.Messages)
	}

	if st.CrisisBannerVisible && !c.bannerShown {
		c.bannerShown = true
		out = append(out, crisisBannerEntity(render.Project(st).Helplines)...)
	}
	return out
}

func messageEntity(i int, m chat.Message) []tea.Msg {
	role := "assistant"
	if m.Sender == chat.SenderUser {
		role = "user"
	}
	id := timeline.EntityID{LocalID: fmt.Sprintf("message-%d", i), Kind: MessageKind}
	return []tea.Msg{
		timeline.UIEntityCreated{
			ID:       id,
			Renderer: timeline.RendererDescriptor{Key: MessageRendererKey, Kind: MessageKind},
			Props: map[string]any{
				"role": role,
				// text is what gets copied to the clipboard
				"text":   markup.Strip(m.Text),
				"markup": m.Text,
			},
			StartedAt: time.Now(),
		},
		timeline.UIEntityCompleted{ID: id},
	}
}

func crisisBannerEntity(helplines []render.Helpline) []tea.Msg {
	id := timeline.EntityID{LocalID: "crisis-banner", Kind: CrisisBannerKind}
	return []tea.Msg{
		timeline.UIEntityCreated{
			ID:        id,
			Renderer:  timeline.RendererDescriptor{Key: CrisisBannerRendererKey, Kind: CrisisBannerKind},
			Props:     map[string]any{"helplines": helplines},
			StartedAt: time.Now(),
		},
		timeline.UIEntityCompleted{ID: id},
	}
}

// RegisterRenderers returns a timeline registration hook for the message and
// crisis banner renderers.
func RegisterRenderers(r *render.TerminalRenderer) func(*timeline.Registry) {
	return func(reg *timeline.Registry) {
		reg.RegisterModelFactory(MessageFactory{Renderer: r})
		reg.RegisterModelFactory(CrisisBannerFactory{Renderer: r})
	}
}

var (
	selectedStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderLeft(true).BorderForeground(lipgloss.Color("63"))
	unselectedStyle = lipgloss.NewStyle().PaddingLeft(1)
)

// MessageModel renders one user or assistant message.
type MessageModel struct {
	renderer *render.TerminalRenderer
	role     string
	text     string
	markup   string
	width    int
	selected bool
}

func (m *MessageModel) Init() tea.Cmd { return nil }

func (m *MessageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case timeline.EntitySelectedMsg:
		m.selected = true
	case timeline.EntityUnselectedMsg:
		m.selected = false
	case timeline.EntityPropsUpdatedMsg:
		m.onProps(v.Patch)
	case timeline.EntitySetSizeMsg:
		m.width = v.Width
	case timeline.EntityCopyTextMsg, timeline.EntityCopyCodeMsg:
		return m, func() tea.Msg { return timeline.CopyTextRequestedMsg{Text: m.text} }
	}
	return m, nil
}

func (m *MessageModel) onProps(patch map[string]any) {
	if v, ok := patch["role"].(string); ok {
		m.role = v
	}
	if v, ok := patch["text"].(string); ok {
		m.text = v
		m.markup = v
	}
	if v, ok := patch["markup"].(string); ok {
		m.markup = v
	}
	if v, ok := patch["selected"].(bool); ok {
		m.selected = v
	}
}

func (m *MessageModel) View() string {
	sender := chat.SenderBot
	if m.role == "user" {
		sender = chat.SenderUser
	}
	width := 0
	if m.width > 2 {
		width = m.width - 2
	}
	block := render.Block{Kind: render.BlockMessage, Sender: sender, Text: m.markup}
	out := m.renderer.Block(block, nil, width, "")
	if m.selected {
		return selectedStyle.Render(out)
	}
	return unselectedStyle.Render(out)
}

type MessageFactory struct {
	Renderer *render.TerminalRenderer
}

func (MessageFactory) Key() string  { return MessageRendererKey }
func (MessageFactory) Kind() string { return MessageKind }
func (f MessageFactory) NewEntityModel(initialProps map[string]any) timeline.EntityModel {
	m := &MessageModel{renderer: f.Renderer, role: "assistant"}
	m.onProps(initialProps)
	return m
}

// CrisisBannerModel renders the crisis banner with its helplines.
type CrisisBannerModel struct {
	renderer  *render.TerminalRenderer
	helplines []render.Helpline
	width     int
}

func (m *CrisisBannerModel) Init() tea.Cmd { return nil }

func (m *CrisisBannerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case timeline.EntityPropsUpdatedMsg:
		if h, ok := v.Patch["helplines"].([]render.Helpline); ok {
			m.helplines = h
		}
	case timeline.EntitySetSizeMsg:
		m.width = v.Width
	}
	return m, nil
}

func (m *CrisisBannerModel) View() string {
	block := render.Block{Kind: render.BlockCrisisBanner, Text: render.CrisisBannerText}
	return m.renderer.Block(block, m.helplines, m.width, "")
}

type CrisisBannerFactory struct {
	Renderer *render.TerminalRenderer
}

func (CrisisBannerFactory) Key() string  { return CrisisBannerRendererKey }
func (CrisisBannerFactory) Kind() string { return CrisisBannerKind }
func (f CrisisBannerFactory) NewEntityModel(initialProps map[string]any) timeline.EntityModel {
	m := &CrisisBannerModel{renderer: f.Renderer}
	if h, ok := initialProps["helplines"].([]render.Helpline); ok {
		m.helplines = h
	}
	return m
}
