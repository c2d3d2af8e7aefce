package cmds

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/render"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/go-go-golems/carechat/pkg/ui"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

type blockingTransport struct{}

func (blockingTransport) Send(ctx context.Context, _ transport.Request) (*transport.Response, error) {
	<-ctx.Done()
	return nil, &transport.ExchangeError{Kind: transport.KindCanceled, Err: ctx.Err()}
}

func plainRenderer() *render.TerminalRenderer {
	lr := lipgloss.NewRenderer(io.Discard)
	lr.SetColorProfile(termenv.Ascii)
	return render.NewTerminalRenderer(render.DefaultStyles(lr), false)
}

func TestSendFirstPrintsFallbackWhenCancelled(t *testing.T) {
	conv := chat.NewConversation(session.New(), blockingTransport{})
	var out bytes.Buffer
	printer := ui.NewLinePrinter(&out, plainRenderer(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sendFirst(ctx, conv, printer, "hello"))

	require.Contains(t, out.String(), "You: hello")
	require.Contains(t, out.String(), chat.FallbackMessage)
}

func TestChatMessageFlushedOnCancel(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer backend.Close()

	root := newTestRoot(t)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString("never sent\n"))
	root.SetArgs([]string{"chat", "--line-mode", "--endpoint", backend.URL, "--message", "hello"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, root.ExecuteContext(ctx))

	require.Contains(t, out.String(), "You: hello")
	require.Contains(t, out.String(), chat.FallbackMessage)
	require.NotContains(t, out.String(), "never sent")
}
