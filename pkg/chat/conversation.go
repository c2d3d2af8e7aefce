// Package chat holds the client-side conversation: the message log, the
// pending input, the responding and crisis flags, and the single exchange
// that may be in flight at any time.
package chat

import (
	"context"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrExchangeStarted is returned when Run is called twice on the same Exchange.
var ErrExchangeStarted = errors.New("exchange already started")

// Conversation is safe for concurrent use.
type Conversation struct {
	session   *session.Session
	transport transport.Transport
	timeout   time.Duration

	mu           sync.Mutex
	messages     []Message
	input        string
	inFlight     *Exchange
	crisisBanner bool
	helplines    map[string]string
}

type Option func(*Conversation)

// WithExchangeTimeout bounds each exchange. Zero means no timeout.
func WithExchangeTimeout(d time.Duration) Option {
	return func(c *Conversation) {
		c.timeout = d
	}
}

func NewConversation(sess *session.Session, tr transport.Transport, options ...Option) *Conversation {
	c := &Conversation{
		session:   sess,
		transport: tr,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Conversation) Session() *session.Session {
	return c.session
}

// SetInput replaces the pending-input buffer.
func (c *Conversation) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

func (c *Conversation) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Responding reports whether an exchange is in flight.
func (c *Conversation) Responding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight != nil
}

// Prepare performs the submit transition: the user message is appended, the
// input buffer cleared and the in-flight slot taken. It returns false without
// touching state when text is blank or another exchange is still in flight.
// The caller must Run the returned exchange.
func (c *Conversation) Prepare(text string) (*Exchange, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight != nil {
		log.Debug().Str("user_id", c.session.UserID()).Msg("exchange in flight, ignoring submit")
		return nil, false
	}

	c.messages = append(c.messages, Message{Text: text, Sender: SenderUser})
	c.input = ""

	convID, _ := c.session.ConversationID()
	req := transport.NewRequest(text, c.session.UserID(), convID)
	req.Language = c.session.Language()

	ex := &Exchange{
		conv:    c,
		Request: req,
		done:    make(chan struct{}),
	}
	c.inFlight = ex
	return ex, true
}

// PrepareInput prepares an exchange for the current input buffer.
func (c *Conversation) PrepareInput() (*Exchange, bool) {
	return c.Prepare(c.Input())
}

// Submit prepares and runs an exchange inline. It reports whether a request
// was issued; the returned error is the transport failure, already answered
// in the log with the fallback message.
func (c *Conversation) Submit(ctx context.Context, text string) (bool, error) {
	ex, ok := c.Prepare(text)
	if !ok {
		return false, nil
	}
	return true, ex.Run(ctx)
}

// SubmitInput submits the current input buffer.
func (c *Conversation) SubmitInput(ctx context.Context) (bool, error) {
	return c.Submit(ctx, c.Input())
}

// OnSuccess applies a backend reply.
func (c *Conversation) OnSuccess(resp *transport.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.AdoptConversationID(resp.ConversationID) {
		log.Debug().Str("conversation_id", resp.ConversationID).Msg("conversation id assigned")
	}

	c.messages = append(c.messages, Message{Text: resp.Text, Sender: SenderBot})
	c.inFlight = nil

	if resp.CrisisDetected {
		if !c.crisisBanner {
			log.Warn().Str("user_id", c.session.UserID()).Msg("crisis detected by backend")
		}
		c.crisisBanner = true
		if len(resp.HelplineNumbers) > 0 {
			c.helplines = maps.Clone(resp.HelplineNumbers)
		}
	}

	if resp.EscalationTriggered {
		c.messages = append(c.messages, Message{Text: EscalationMessage, Sender: SenderBot})
	}
}

// OnFailure answers a failed exchange with the fallback message. The error
// itself is only logged.
func (c *Conversation) OnFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log.Warn().
		Err(err).
		Str("kind", string(transport.KindOf(err))).
		Str("user_id", c.session.UserID()).
		Msg("chat exchange failed")

	c.messages = append(c.messages, Message{Text: FallbackMessage, Sender: SenderBot})
	c.inFlight = nil
}

func (c *Conversation) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	convID, _ := c.session.ConversationID()
	return State{
		Messages:            append([]Message(nil), c.messages...),
		Input:               c.input,
		Responding:          c.inFlight != nil,
		CrisisBannerVisible: c.crisisBanner,
		Helplines:           maps.Clone(c.helplines),
		UserID:              c.session.UserID(),
		ConversationID:      convID,
	}
}

// Exchange is one request/response round trip taken from Prepare.
type Exchange struct {
	conv    *Conversation
	Request transport.Request

	started atomic.Bool
	done    chan struct{}
}

// Run sends the request and applies the outcome to the conversation. Context
// cancellation resolves the exchange like any other failure.
func (e *Exchange) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrExchangeStarted
	}
	defer close(e.done)

	if e.conv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.conv.timeout)
		defer cancel()
	}

	resp, err := e.conv.transport.Send(ctx, e.Request)
	if err != nil {
		e.conv.OnFailure(err)
		return err
	}
	e.conv.OnSuccess(resp)
	return nil
}

// Done is closed once Run has applied its outcome.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}
