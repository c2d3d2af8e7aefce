package transport

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WebSocketTransport speaks the chat protocol over the backend's per-user
// socket at <endpoint>/<user_id>. The connection is dialed lazily, kept for
// later exchanges and dropped after any failure.
type WebSocketTransport struct {
	endpoint string
	dialer   *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	connUser string
}

var _ Transport = (*WebSocketTransport)(nil)

// messageFrame is what the backend's socket handler expects.
type messageFrame struct {
	Type string `json:"type"`
	Request
}

// NewWebSocketTransport dials endpoint; http and https endpoints are dialed
// as ws and wss.
func NewWebSocketTransport(endpoint string) *WebSocketTransport {
	return &WebSocketTransport{
		endpoint: strings.TrimRight(websocketEndpoint(endpoint), "/"),
		dialer:   websocket.DefaultDialer,
	}
}

func websocketEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	}
	return endpoint
}

func (t *WebSocketTransport) Send(ctx context.Context, req Request) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connectLocked(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	// closing the socket is the only way to unblock a pending read
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(messageFrame{Type: "message", Request: req}); err != nil {
		t.dropLocked()
		return nil, classify(ctx, errors.Wrap(err, "write message frame"))
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.dropLocked()
		return nil, classify(ctx, errors.Wrap(err, "read reply frame"))
	}
	if !stop() {
		t.dropLocked()
	}

	return DecodeResponse(data)
}

func (t *WebSocketTransport) connectLocked(ctx context.Context, userID string) (*websocket.Conn, error) {
	if t.conn != nil && t.connUser == userID {
		return t.conn, nil
	}
	t.dropLocked()

	u, err := url.Parse(t.endpoint + "/" + url.PathEscape(userID))
	if err != nil {
		return nil, newExchangeError(KindNetwork, 0, errors.Wrap(err, "parse websocket endpoint"))
	}

	conn, resp, err := t.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, newExchangeError(KindStatus, resp.StatusCode, errors.Wrap(err, "websocket handshake"))
		}
		return nil, classify(ctx, errors.Wrap(err, "dial websocket"))
	}
	log.Debug().Str("url", u.String()).Msg("websocket connected")

	t.conn = conn
	t.connUser = userID
	return conn, nil
}

func (t *WebSocketTransport) dropLocked() {
	if t.conn == nil {
		return
	}
	_ = t.conn.Close()
	t.conn = nil
	t.connUser = ""
}

// Close sends a close frame and releases the connection, if any.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	t.dropLocked()
	return nil
}
