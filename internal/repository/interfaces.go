package repository

import (
	"time"

	"github.com/aptify/chat-backend/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
}

// ConversationRepositoryInterface defines the contract for conversation repository operations
type ConversationRepositoryInterface interface {
	Create(conv *models.Conversation) error
	FindByID(id uint) (*models.Conversation, error)
	FindByParticipants(userA, userB uint) (*models.Conversation, error)
	ListForUser(userID uint, limit int) ([]models.Conversation, error)
	ApplySend(conversationID uint, preview string, senderID, recipientID uint, at time.Time) error
	ClearUnread(conversationID, userID uint) error
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	ListOrdered(conversationID, afterID uint, limit int) ([]models.Message, error)
	ListUnordered(conversationID, afterID uint, limit int) ([]models.Message, error)
}

// NotificationRepositoryInterface defines the contract for notification repository operations
type NotificationRepositoryInterface interface {
	Create(notification *models.Notification) error
	ListForUser(userID uint, limit int) ([]models.Notification, error)
	MarkRead(id, userID uint) error
	MarkAllRead(userID uint) error
	CountUnread(userID uint) (int64, error)
}
