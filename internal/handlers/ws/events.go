package ws

import "github.com/aptify/chat-backend/internal/models"

// SnapshotEvent replays the current ordered window of a conversation right
// after a subscribe, before any live deltas.
type SnapshotEvent struct {
	Type           string                   `json:"type"`
	ConversationID uint                     `json:"conversation_id"`
	Messages       []models.MessageResponse `json:"messages"`
}

// MessageEvent is one live message delta on a subscribed conversation.
type MessageEvent struct {
	Type           string                 `json:"type"`
	ConversationID uint                   `json:"conversation_id"`
	Message        models.MessageResponse `json:"message"`
}

const (
	EventSnapshot = "conversation.snapshot"
	EventMessage  = "message.created"
	EventPong     = "pong"
)

func NewSnapshotEvent(conversationID uint, messages []models.MessageResponse) SnapshotEvent {
	return SnapshotEvent{Type: EventSnapshot, ConversationID: conversationID, Messages: messages}
}

func NewMessageEvent(conversationID uint, message models.MessageResponse) MessageEvent {
	return MessageEvent{Type: EventMessage, ConversationID: conversationID, Message: message}
}
