package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	boba_chat "github.com/go-go-golems/bobatea/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyRunning = errors.New("exchange is already running")
	ErrNothingToSend  = errors.New("nothing to send")
)

type programSender interface {
	Send(msg tea.Msg)
}

// ExchangeBackend runs conversation exchanges for the bobatea chat model, one
// at a time. Messages the conversation gains are sent to the attached program
// as timeline entities.
type ExchangeBackend struct {
	ctx  context.Context
	conv *chat.Conversation

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc

	// sendMu serializes deliveries to the program; emitMu only guards the
	// bookkeeping and is never held while sending.
	sendMu   sync.Mutex
	emitMu   sync.Mutex
	program  programSender
	timeline timelineCursor
}

var _ boba_chat.Backend = &ExchangeBackend{}

// NewExchangeBackend creates a backend for conv. Exchanges are cancelled when
// ctx is done.
func NewExchangeBackend(ctx context.Context, conv *chat.Conversation) *ExchangeBackend {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ExchangeBackend{
		ctx:      ctx,
		conv:     conv,
		timeline: newTimelineCursor(),
	}
}

func (b *ExchangeBackend) Conversation() *chat.Conversation {
	return b.conv
}

// AttachProgram sets the program that receives timeline entities.
func (b *ExchangeBackend) AttachProgram(p *tea.Program) {
	b.attach(p)
}

func (b *ExchangeBackend) attach(p programSender) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.program = p
}

// Start sends prompt. The chat model has already put the prompt on the
// timeline; the returned command blocks on the transport, emits the reply
// entities and yields a BackendFinishedMsg.
func (b *ExchangeBackend) Start(ctx context.Context, prompt string) (tea.Cmd, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isRunning {
		return nil, ErrAlreadyRunning
	}

	ex, ok := b.conv.Prepare(prompt)
	if !ok {
		if b.conv.Responding() {
			return nil, ErrAlreadyRunning
		}
		return nil, ErrNothingToSend
	}

	b.emitMu.Lock()
	b.timeline.skip(len(b.conv.Snapshot().Messages) - 1)
	b.emitMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.ctx, cancel)
	b.cancel = func() {
		stop()
		cancel()
	}
	b.isRunning = true

	return func() tea.Msg {
		err := ex.Run(ctx)
		b.finish()
		if err != nil {
			log.Debug().Err(err).Msg("exchange finished with fallback")
		}
		b.emitPending()
		return boba_chat.BackendFinishedMsg{}
	}, nil
}

func (b *ExchangeBackend) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.isRunning = false
	b.cancel = nil
}

// Interrupt cancels the running exchange; it still resolves with the fallback message.
func (b *ExchangeBackend) Interrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	} else {
		log.Debug().Msg("no exchange running")
	}
}

// Kill cancels the running exchange and releases the backend immediately.
func (b *ExchangeBackend) Kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.isRunning = false
}

func (b *ExchangeBackend) IsFinished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.isRunning
}

// SeedTimeline returns a command that puts the messages the conversation
// already holds on the timeline, for conversations started before the
// program.
func (b *ExchangeBackend) SeedTimeline() tea.Cmd {
	return func() tea.Msg {
		b.emitPending()
		return nil
	}
}

func (b *ExchangeBackend) emitPending() {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	b.emitMu.Lock()
	p := b.program
	if p == nil {
		b.emitMu.Unlock()
		return
	}
	msgs := b.timeline.advance(b.conv.Snapshot())
	b.emitMu.Unlock()

	for _, msg := range msgs {
		p.Send(msg)
	}
}
