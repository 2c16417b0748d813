package models

import (
	"time"
)

// Message is immutable once created: only the sender's readBy entry is ever
// written, at create time. Seen state for everyone else is derived at read
// time, never patched onto the row.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_messages_conv_created,priority:2" json:"created_at"`

	ConversationID uint   `gorm:"not null;index:idx_messages_conv_created,priority:1" json:"conversation_id"`
	SenderID       uint   `gorm:"not null;index" json:"sender_id"`
	SenderRole     string `gorm:"type:varchar(20)" json:"sender_role,omitempty"`

	Text        string         `gorm:"type:text" json:"text"`
	Attachments AttachmentList `gorm:"type:jsonb" json:"attachments,omitempty"`

	ReadBy BoolMap `gorm:"type:jsonb" json:"read_by"`
	// Legacy rows track viewers as an id array instead of a map.
	SeenBy IDList `gorm:"type:jsonb" json:"seen_by,omitempty"`
}

// SeenByUser reports whether userID has seen this message. ReadBy is
// authoritative; SeenBy is consulted only for legacy rows that predate it.
func (m *Message) SeenByUser(userID uint) bool {
	if m.ReadBy != nil {
		return m.ReadBy[userID]
	}
	for _, id := range m.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}

type MessageResponse struct {
	ID             uint           `json:"id"`
	ConversationID uint           `json:"conversation_id"`
	SenderID       uint           `json:"sender_id"`
	SenderRole     string         `json:"sender_role,omitempty"`
	SenderName     string         `json:"sender_name,omitempty"`
	Text           string         `json:"text"`
	Attachments    AttachmentList `json:"attachments,omitempty"`
	Seen           bool           `json:"seen"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderRole:     m.SenderRole,
		Text:           m.Text,
		Attachments:    m.Attachments,
		CreatedAt:      m.CreatedAt,
	}
}
