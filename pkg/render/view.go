// Package render projects a conversation snapshot onto what a widget shows:
// the crisis banner, one block per message and the typing indicator.
package render

import (
	"sort"

	"github.com/go-go-golems/carechat/pkg/chat"
)

type BlockKind string

const (
	BlockCrisisBanner BlockKind = "crisis-banner"
	BlockMessage      BlockKind = "message"
	BlockTyping       BlockKind = "typing"
)

type Block struct {
	Kind   BlockKind
	Sender chat.Sender
	Text   string
}

type Helpline struct {
	Name   string
	Number string
}

// CrisisBannerText heads the banner shown once the backend has flagged a crisis.
const CrisisBannerText = "If you are in crisis or thinking about harming yourself, please reach out for immediate help. Contact your local emergency services or a crisis helpline."

// TypingText is shown while the assistant is responding.
const TypingText = "Assistant is typing"

type View struct {
	Blocks    []Block
	Helplines []Helpline
	CanSend   bool
}

// Project is a pure function of the snapshot.
func Project(st chat.State) View {
	v := View{CanSend: !st.Responding}

	if st.CrisisBannerVisible {
		v.Blocks = append(v.Blocks, Block{Kind: BlockCrisisBanner, Text: CrisisBannerText})
		for name, number := range st.Helplines {
			v.Helplines = append(v.Helplines, Helpline{Name: name, Number: number})
		}
		sort.Slice(v.Helplines, func(i, j int) bool { return v.Helplines[i].Name < v.Helplines[j].Name })
	}

	for _, m := range st.Messages {
		v.Blocks = append(v.Blocks, Block{Kind: BlockMessage, Sender: m.Sender, Text: m.Text})
	}

	if st.Responding {
		v.Blocks = append(v.Blocks, Block{Kind: BlockTyping, Sender: chat.SenderBot, Text: TypingText})
	}
	return v
}
