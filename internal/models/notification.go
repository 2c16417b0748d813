package models

import (
	"time"
)

type NotificationType string

const (
	NotificationMessage NotificationType = "message"
	NotificationSystem  NotificationType = "system"
)

// Notification is a best-effort side record; failing to create one never
// fails the action that triggered it.
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID  uint             `gorm:"not null;index" json:"user_id"`
	Title   string           `gorm:"not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Type    NotificationType `gorm:"type:varchar(30);default:'system'" json:"type"`
	Link    *string          `json:"link"`
	Read    bool             `gorm:"default:false;index" json:"read"`
}

type NotificationResponse struct {
	ID        uint             `json:"id"`
	UserID    uint             `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Link      *string          `json:"link"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
