package ws

import (
	"encoding/json"
)

// ClientFrame is the wire format for frames a client sends: a type tag plus
// a type-specific payload.
type ClientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload opens a live stream over one conversation.
type SubscribePayload struct {
	ConversationID uint `json:"conversation_id"`
}

// UnsubscribePayload tears a live stream down.
type UnsubscribePayload struct {
	ConversationID uint `json:"conversation_id"`
}

// MarkReadPayload clears the viewer's unread flag on a conversation.
type MarkReadPayload struct {
	ConversationID uint `json:"conversation_id"`
}

const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameMarkRead    = "mark_read"
	FramePing        = "ping"
)

// ErrorResponse is sent when frame processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
