package session

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var userIDPattern = regexp.MustCompile(`^user_[a-z0-9]{9}$`)

func TestNewUserIDFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		require.Regexp(t, userIDPattern, NewUserID())
	}
}

func TestNewUserIDUsesFullAlphabet(t *testing.T) {
	seen := map[rune]bool{}
	for i := 0; i < 200; i++ {
		for _, r := range strings.TrimPrefix(NewUserID(), UserIDPrefix) {
			seen[r] = true
		}
	}
	var beyondHex bool
	for r := range seen {
		if r >= 'g' && r <= 'z' {
			beyondHex = true
		}
	}
	require.True(t, beyondHex, "only hex digits drawn: %v", seen)
}

func TestNewSessionIsStable(t *testing.T) {
	s := New()
	first := s.UserID()
	require.Regexp(t, userIDPattern, first)
	require.Equal(t, first, s.UserID())

	other := New()
	require.NotEqual(t, first, other.UserID())
}

func TestAdoptConversationIDOnlyOnce(t *testing.T) {
	s := New()
	_, ok := s.ConversationID()
	require.False(t, ok)

	require.False(t, s.AdoptConversationID(""))
	require.True(t, s.AdoptConversationID("conv-1"))
	require.False(t, s.AdoptConversationID("conv-2"))

	id, ok := s.ConversationID()
	require.True(t, ok)
	require.Equal(t, "conv-1", id)
}

func TestOptions(t *testing.T) {
	s := New(WithUserID("user_fixed0001"), WithConversationID("resume"), WithLanguage("Hindi"))
	require.Equal(t, "user_fixed0001", s.UserID())
	require.Equal(t, "Hindi", s.Language())
	id, ok := s.ConversationID()
	require.True(t, ok)
	require.Equal(t, "resume", id)

	s = New(WithUserID(""))
	require.Regexp(t, userIDPattern, s.UserID())
}
