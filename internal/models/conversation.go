package models

import (
	"time"
)

// Conversation pairs exactly two participants and carries the denormalized
// fields the conversation list renders without loading messages.
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// The pair is normalized to (low, high) so the same two users always map
	// to the same row; the composite unique index backs find-or-create.
	ParticipantLow  uint `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"participant_low"`
	ParticipantHigh uint `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"participant_high"`

	LastMessage string  `gorm:"type:text" json:"last_message"`
	UnreadFor   BoolMap `gorm:"type:jsonb" json:"unread_for"`

	// Rows written by older clients carry integer counters instead of the
	// boolean map. Read-only; never written back.
	UnreadCounts CountMap `gorm:"type:jsonb" json:"-"`
}

// NormalizePair orders an unordered participant pair as (low, high).
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID uint) bool {
	return userID != 0 && (userID == c.ParticipantLow || userID == c.ParticipantHigh)
}

// OtherParticipant returns the peer of userID. Callers must have verified
// membership first.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if userID == c.ParticipantLow {
		return c.ParticipantHigh
	}
	return c.ParticipantLow
}

// UnreadBy reports whether userID has unseen activity. UnreadFor is
// authoritative; legacy counter rows report unread while their count is
// positive.
func (c *Conversation) UnreadBy(userID uint) bool {
	if c.UnreadFor != nil {
		return c.UnreadFor[userID]
	}
	return c.UnreadCounts[userID] > 0
}

type ConversationResponse struct {
	ID          uint      `json:"id"`
	PeerID      uint      `json:"peer_id"`
	PeerName    string    `json:"peer_name,omitempty"`
	LastMessage string    `json:"last_message"`
	Unread      bool      `json:"unread"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Conversation) ToResponse(viewerID uint) ConversationResponse {
	return ConversationResponse{
		ID:          c.ID,
		PeerID:      c.OtherParticipant(viewerID),
		LastMessage: c.LastMessage,
		Unread:      c.UnreadBy(viewerID),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
