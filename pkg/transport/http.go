package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxResponseBytes = 1 << 20

// HTTPTransport posts each message as JSON to a fixed endpoint.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

type HTTPOption func(*HTTPTransport)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// NewHTTPTransport uses a client without a timeout; bound exchanges through the context.
func NewHTTPTransport(endpoint string, options ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint: endpoint,
		client:   &http.Client{},
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newExchangeError(KindNetwork, 0, errors.Wrap(err, "encode request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newExchangeError(KindNetwork, 0, errors.Wrap(err, "build request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log.Debug().
		Str("endpoint", t.endpoint).
		Str("user_id", req.UserID).
		Bool("has_conversation", req.ConversationID != nil).
		Msg("sending chat message")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, errors.Wrap(err, "post chat message"))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(ctx, errors.Wrap(err, "read response body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("body", snippet(respBody)).
			Msg("chat backend rejected message")
		return nil, newExchangeError(KindStatus, resp.StatusCode, errors.Errorf("unexpected status %s", resp.Status))
	}

	return DecodeResponse(respBody)
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
