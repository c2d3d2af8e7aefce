// Package session holds the identity a chat client presents to the backend:
// an anonymous user id generated once, and the conversation id the backend
// hands back on its first reply.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UserIDPrefix is prepended to every generated user id.
const UserIDPrefix = "user_"

const userIDTokenLength = 9

// Session is safe for concurrent use. The conversation id can only be set once.
type Session struct {
	userID   string
	language string

	mu             sync.RWMutex
	conversationID string
}

type Option func(*Session)

// WithUserID overrides the generated user id.
func WithUserID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.userID = id
		}
	}
}

// WithConversationID resumes an existing backend conversation.
func WithConversationID(id string) Option {
	return func(s *Session) {
		s.conversationID = id
	}
}

// WithLanguage sets the language hint sent along with every message.
func WithLanguage(language string) Option {
	return func(s *Session) {
		s.language = language
	}
}

func New(options ...Option) *Session {
	s := &Session{userID: NewUserID()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

const userIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewUserID returns "user_" followed by nine random characters from [0-9a-z].
func NewUserID() string {
	u := uuid.New()
	var b strings.Builder
	b.WriteString(UserIDPrefix)
	for i := 0; b.Len() < len(UserIDPrefix)+userIDTokenLength; i++ {
		// bytes 6 and 8 carry the uuid version and variant bits
		if i == 6 || i == 8 {
			continue
		}
		b.WriteByte(userIDAlphabet[int(u[i])%len(userIDAlphabet)])
	}
	return b.String()
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Language() string {
	return s.language
}

// ConversationID returns the stored conversation id and whether one is set.
func (s *Session) ConversationID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID, s.conversationID != ""
}

// AdoptConversationID stores id if no conversation id is set yet. It reports
// whether the id was stored.
func (s *Session) AdoptConversationID(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID != "" {
		return false
	}
	s.conversationID = id
	return true
}
