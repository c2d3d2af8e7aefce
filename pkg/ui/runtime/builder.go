package runtime

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/go-go-golems/carechat/pkg/ui"
	"github.com/pkg/errors"
)

// ChatBuilder constructs chat UI components and programs for CLI and embedding.
type ChatBuilder struct {
	ctx                 context.Context
	transport           transport.Transport
	session             *session.Session
	conversation        *chat.Conversation
	conversationOptions []chat.Option
	programOptions      []tea.ProgramOption
	modelOptions        []ui.ModelOption
}

// NewChatBuilder returns a new builder with defaults.
func NewChatBuilder() *ChatBuilder {
	return &ChatBuilder{
		ctx: context.Background(),
	}
}

func (b *ChatBuilder) WithContext(ctx context.Context) *ChatBuilder {
	if ctx != nil {
		b.ctx = ctx
	}
	return b
}

func (b *ChatBuilder) WithTransport(t transport.Transport) *ChatBuilder {
	b.transport = t
	return b
}

// WithSession sets the session identity; a fresh one is created otherwise.
func (b *ChatBuilder) WithSession(s *session.Session) *ChatBuilder {
	b.session = s
	return b
}

// WithConversation continues an existing conversation; the transport,
// session and conversation options are then ignored.
func (b *ChatBuilder) WithConversation(c *chat.Conversation) *ChatBuilder {
	b.conversation = c
	return b
}

func (b *ChatBuilder) WithConversationOptions(opts ...chat.Option) *ChatBuilder {
	b.conversationOptions = append(b.conversationOptions, opts...)
	return b
}

func (b *ChatBuilder) WithProgramOptions(opts ...tea.ProgramOption) *ChatBuilder {
	b.programOptions = append(b.programOptions, opts...)
	return b
}

func (b *ChatBuilder) WithModelOptions(opts ...ui.ModelOption) *ChatBuilder {
	b.modelOptions = append(b.modelOptions, opts...)
	return b
}

// ChatSession holds references to runtime components.
type ChatSession struct {
	Conversation *chat.Conversation
	Backend      *ui.ExchangeBackend
}

// AttachProgram routes the backend's timeline entities to p. Embedders that
// run the model in their own program must call it before p.Run.
func (cs *ChatSession) AttachProgram(p *tea.Program) {
	cs.Backend.AttachProgram(p)
}

// BuildComponents creates the conversation, backend and chat model for embedding.
func (b *ChatBuilder) BuildComponents() (*ChatSession, tea.Model, error) {
	conv := b.conversation
	if conv == nil {
		if b.transport == nil {
			return nil, nil, errors.New("transport is required; use WithTransport")
		}
		sess := b.session
		if sess == nil {
			sess = session.New()
		}
		conv = chat.NewConversation(sess, b.transport, b.conversationOptions...)
	}
	backend := ui.NewExchangeBackend(b.ctx, conv)
	model := ui.NewModel(backend, b.modelOptions...)

	return &ChatSession{Conversation: conv, Backend: backend}, model, nil
}

// BuildProgram creates the components and a ready-to-run Bubble Tea program.
func (b *ChatBuilder) BuildProgram() (*ChatSession, *tea.Program, error) {
	cs, model, err := b.BuildComponents()
	if err != nil {
		return nil, nil, err
	}
	opts := append([]tea.ProgramOption{tea.WithContext(b.ctx)}, b.programOptions...)
	p := tea.NewProgram(model, opts...)
	cs.AttachProgram(p)
	return cs, p, nil
}
