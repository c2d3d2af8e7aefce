package transport

import (
	"github.com/pkg/errors"
)

const (
	TypeHTTP      = "http"
	TypeWebSocket = "websocket"
)

// New builds the transport named by kind ("http" or "websocket").
func New(kind string, endpoint string) (Transport, error) {
	if endpoint == "" {
		return nil, errors.New("chat endpoint is not configured")
	}
	switch kind {
	case "", TypeHTTP:
		return NewHTTPTransport(endpoint), nil
	case TypeWebSocket:
		return NewWebSocketTransport(endpoint), nil
	default:
		return nil, errors.Errorf("unknown transport %q (want %q or %q)", kind, TypeHTTP, TypeWebSocket)
	}
}
