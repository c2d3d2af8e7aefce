// Package transport carries one chat exchange between the client and the
// remote chat backend: a user message goes out, one JSON reply comes back.
package transport

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/pkg/errors"
)

// Transport performs a single request/response exchange with the backend.
// Implementations never retry; every failure is reported as an *ExchangeError.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Request is the JSON body posted for every user message. ConversationID
// encodes as null until the backend has assigned one.
type Request struct {
	Message        string  `json:"message"`
	UserID         string  `json:"user_id"`
	ConversationID *string `json:"conversation_id"`
	Language       string  `json:"language,omitempty"`
}

// NewRequest builds a request, leaving ConversationID nil when id is empty.
func NewRequest(message, userID, conversationID string) Request {
	req := Request{Message: message, UserID: userID}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}
	return req
}

// CrisisTag is the detected tag some backends send instead of crisis_detected.
const CrisisTag = "crisis"

// Response is the decoded backend reply.
type Response struct {
	Text                string
	ConversationID      string
	CrisisDetected      bool
	EscalationTriggered bool

	AgentType          string
	DetectedTags       []string
	HelplineNumbers    map[string]string
	SuggestedResources []string
}

// wireResponse accepts both the widget field names and the older
// session_id/escalation_needed names some backends still send.
type wireResponse struct {
	Response            *string           `json:"response"`
	ConversationID      string            `json:"conversation_id"`
	SessionID           string            `json:"session_id"`
	CrisisDetected      bool              `json:"crisis_detected"`
	EscalationTriggered bool              `json:"escalation_triggered"`
	EscalationNeeded    bool              `json:"escalation_needed"`
	AgentType           string            `json:"agent_type"`
	DetectedTags        []string          `json:"detected_tags"`
	HelplineNumbers     map[string]string `json:"helpline_numbers"`
	SuggestedResources  []string          `json:"suggested_resources"`
}

// DecodeResponse parses a reply body. A body that is not a JSON object or
// lacks the "response" field is a decode failure.
func DecodeResponse(data []byte) (*Response, error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, newExchangeError(KindDecode, 0, errors.Wrap(err, "decode response body"))
	}
	if w.Response == nil {
		return nil, newExchangeError(KindDecode, 0, errors.New("response body has no \"response\" field"))
	}

	resp := &Response{
		Text:                *w.Response,
		ConversationID:      w.ConversationID,
		CrisisDetected:      w.CrisisDetected,
		EscalationTriggered: w.EscalationTriggered || w.EscalationNeeded,
		AgentType:           w.AgentType,
		DetectedTags:        w.DetectedTags,
		HelplineNumbers:     w.HelplineNumbers,
		SuggestedResources:  w.SuggestedResources,
	}
	if resp.ConversationID == "" {
		resp.ConversationID = w.SessionID
	}
	// Backends without crisis_detected flag a crisis through the tags and
	// the helplines they attach.
	if !resp.CrisisDetected {
		resp.CrisisDetected = slices.Contains(w.DetectedTags, CrisisTag) || len(w.HelplineNumbers) > 0
	}
	return resp, nil
}
