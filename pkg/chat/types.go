package chat

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of the thread. Messages are never edited once appended.
type Message struct {
	Text   string
	Sender Sender
}

const (
	// FallbackMessage replaces the reply when an exchange fails for any reason.
	FallbackMessage = "I'm having trouble connecting right now. Please try again in a moment."

	// EscalationMessage follows the reply when the backend asks for a human counselor.
	EscalationMessage = "Would you like to speak with a human counselor? I can help you schedule a session with one of our counselors."
)

// State is a point-in-time copy of a Conversation, safe to hand to renderers.
type State struct {
	Messages            []Message
	Input               string
	Responding          bool
	CrisisBannerVisible bool
	Helplines           map[string]string

	UserID         string
	ConversationID string
}

// LastBotMessage returns the most recent bot message, if any.
func (s State) LastBotMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Sender == SenderBot {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
