package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type wsBackend struct {
	srv     *httptest.Server
	dials   atomic.Int32
	frames  chan messageFrame
	paths   chan string
	replies func(messageFrame) string
}

func newWSBackend(t *testing.T, replies func(messageFrame) string) *wsBackend {
	b := &wsBackend{
		frames:  make(chan messageFrame, 10),
		paths:   make(chan string, 10),
		replies: replies,
	}
	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		b.dials.Add(1)
		b.paths <- r.URL.Path
		for {
			var f messageFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			b.frames <- f
			reply := b.replies(f)
			if reply == "" {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *wsBackend) endpoint() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws"
}

func TestWebSocketTransportExchange(t *testing.T) {
	b := newWSBackend(t, func(f messageFrame) string {
		return `{"response":"echo: ` + f.Message + `","conversation_id":"c-ws"}`
	})
	tr := NewWebSocketTransport(b.endpoint())
	defer func() { _ = tr.Close() }()

	resp, err := tr.Send(context.Background(), NewRequest("one", "user_ws0000001", ""))
	require.NoError(t, err)
	require.Equal(t, "echo: one", resp.Text)
	require.Equal(t, "c-ws", resp.ConversationID)

	resp, err = tr.Send(context.Background(), NewRequest("two", "user_ws0000001", "c-ws"))
	require.NoError(t, err)
	require.Equal(t, "echo: two", resp.Text)

	require.Equal(t, int32(1), b.dials.Load(), "connection is reused")
	require.Equal(t, "/ws/user_ws0000001", <-b.paths)

	first := <-b.frames
	require.Equal(t, "message", first.Type)
	require.Nil(t, first.ConversationID)
	second := <-b.frames
	require.NotNil(t, second.ConversationID)
	require.Equal(t, "c-ws", *second.ConversationID)
}

func TestWebSocketTransportAcceptsHTTPEndpoint(t *testing.T) {
	b := newWSBackend(t, func(f messageFrame) string {
		return `{"response":"hi","conversation_id":"c-ws"}`
	})
	tr := NewWebSocketTransport(b.srv.URL + "/ws")
	defer func() { _ = tr.Close() }()

	resp, err := tr.Send(context.Background(), NewRequest("one", "user_ws0000002", ""))
	require.NoError(t, err)
	require.Equal(t, "hi", resp.Text)
	require.Equal(t, "/ws/user_ws0000002", <-b.paths)

	require.Equal(t, "wss://example.test/ws", websocketEndpoint("https://example.test/ws"))
	require.Equal(t, "ws://example.test/ws", websocketEndpoint("ws://example.test/ws"))
}

func TestWebSocketTransportRedialsAfterFailure(t *testing.T) {
	var calls atomic.Int32
	b := newWSBackend(t, func(f messageFrame) string {
		if calls.Add(1) == 1 {
			return ""
		}
		return `{"response":"back"}`
	})
	tr := NewWebSocketTransport(b.endpoint())
	defer func() { _ = tr.Close() }()

	_, err := tr.Send(context.Background(), NewRequest("one", "user_ws0000002", ""))
	require.True(t, errors.Is(err, ErrExchangeFailed))
	require.Equal(t, KindNetwork, KindOf(err))

	resp, err := tr.Send(context.Background(), NewRequest("two", "user_ws0000002", ""))
	require.NoError(t, err)
	require.Equal(t, "back", resp.Text)
	require.Equal(t, int32(2), b.dials.Load())
}

func TestWebSocketTransportBadFrame(t *testing.T) {
	b := newWSBackend(t, func(f messageFrame) string { return `not json` })
	tr := NewWebSocketTransport(b.endpoint())
	defer func() { _ = tr.Close() }()

	_, err := tr.Send(context.Background(), NewRequest("x", "user_ws0000003", ""))
	require.True(t, errors.Is(err, ErrExchangeFailed))
	require.Equal(t, KindDecode, KindOf(err))
}

func TestWebSocketTransportDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tr := NewWebSocketTransport("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws")
	_, err := tr.Send(context.Background(), NewRequest("x", "user_ws0000004", ""))
	require.True(t, errors.Is(err, ErrExchangeFailed))
	require.Equal(t, KindStatus, KindOf(err))
}
