package render

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func sampleState() chat.State {
	return chat.State{
		Messages: []chat.Message{
			{Text: "hi", Sender: chat.SenderUser},
			{Text: "**bold** text\nline2", Sender: chat.SenderBot},
		},
	}
}

func TestProjectOrdersBlocks(t *testing.T) {
	st := sampleState()
	st.Responding = true
	st.CrisisBannerVisible = true
	st.Helplines = map[string]string{"b line": "2", "a line": "1"}

	v := Project(st)
	require.False(t, v.CanSend)
	require.Len(t, v.Blocks, 4)
	require.Equal(t, BlockCrisisBanner, v.Blocks[0].Kind)
	require.Equal(t, Block{Kind: BlockMessage, Sender: chat.SenderUser, Text: "hi"}, v.Blocks[1])
	require.Equal(t, BlockMessage, v.Blocks[2].Kind)
	require.Equal(t, BlockTyping, v.Blocks[3].Kind)
	require.Equal(t, []Helpline{{Name: "a line", Number: "1"}, {Name: "b line", Number: "2"}}, v.Helplines)
}

func TestProjectIdle(t *testing.T) {
	v := Project(sampleState())
	require.True(t, v.CanSend)
	require.Len(t, v.Blocks, 2)
	require.Empty(t, v.Helplines)
}

func TestHTMLThreadPretty(t *testing.T) {
	r, err := NewHTMLRenderer(true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Thread(&buf, Project(sampleState())))
	out := buf.String()
	require.Contains(t, out, `<div class="message user">hi</div>`)
	require.Contains(t, out, "<strong>bold</strong> text")
	require.Contains(t, out, "line2")
	require.NotContains(t, out, "**")
}

func TestHTMLThreadPlain(t *testing.T) {
	r, err := NewHTMLRenderer(false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Thread(&buf, Project(sampleState())))
	require.Contains(t, buf.String(), "**bold** text\nline2")
	require.NotContains(t, buf.String(), "<strong>")
}

func TestHTMLEscapesMessages(t *testing.T) {
	st := chat.State{Messages: []chat.Message{
		{Text: "<script>alert(1)</script>", Sender: chat.SenderUser},
		{Text: "**<img src=x onerror=alert(1)>** <script>x</script>", Sender: chat.SenderBot},
	}}
	for _, pretty := range []bool{true, false} {
		r, err := NewHTMLRenderer(pretty)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, r.Thread(&buf, Project(st)))
		require.NotContains(t, buf.String(), "<script")
		require.NotContains(t, buf.String(), "<img")
	}
}

func TestHTMLPage(t *testing.T) {
	r, err := NewHTMLRenderer(true)
	require.NoError(t, err)

	st := sampleState()
	st.Responding = true
	st.CrisisBannerVisible = true
	st.Helplines = map[string]string{"Crisis line": "112"}

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, PageData{Title: "Support chat", SendPath: "/send", RefreshSeconds: 2, View: Project(st)}))
	out := buf.String()
	require.Contains(t, out, "<title>Support chat</title>")
	require.Contains(t, out, `http-equiv="refresh" content="2"`)
	require.Contains(t, out, `class="crisis-banner"`)
	require.Contains(t, out, "Crisis line")
	require.Contains(t, out, `class="typing"`)
	require.Contains(t, out, "disabled")

	buf.Reset()
	require.NoError(t, r.Page(&buf, PageData{Title: "Support chat", SendPath: "/send", RefreshSeconds: 2, View: Project(sampleState())}))
	require.NotContains(t, buf.String(), "http-equiv")
	require.NotContains(t, buf.String(), "disabled")
	require.NotContains(t, buf.String(), "crisis-banner\"")
}

func TestTerminalRenderer(t *testing.T) {
	lr := lipgloss.NewRenderer(io.Discard)
	lr.SetColorProfile(termenv.Ascii)
	tr := NewTerminalRenderer(DefaultStyles(lr), true)

	st := sampleState()
	st.Responding = true
	st.CrisisBannerVisible = true
	st.Helplines = map[string]string{"Crisis line": "112"}

	out := tr.Render(Project(st), 0, "*")
	require.Contains(t, out, "You: hi")
	require.Contains(t, out, "Assistant: bold text\nline2")
	require.Contains(t, out, "• Crisis line: 112")
	require.Contains(t, out, "* "+TypingText+"...")
	require.Less(t, strings.Index(out, "Crisis line"), strings.Index(out, "You: hi"))

	tr.Pretty = false
	out = tr.Render(Project(sampleState()), 0, "")
	require.Contains(t, out, "Assistant: **bold** text\nline2")
}
