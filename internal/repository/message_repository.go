package repository

import (
	"github.com/aptify/chat-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	return &message, err
}

// ListOrdered returns a conversation page ascending by creation time (id as
// tiebreak), optionally resuming after a message id.
func (r *MessageRepository) ListOrdered(conversationID, afterID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	q := r.db.Where("conversation_id = ?", conversationID)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	var messages []models.Message
	err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&messages).Error
	return messages, err
}

// ListUnordered is the fallback shape for backends that cannot serve the
// ordered query; callers restore ordering client-side.
func (r *MessageRepository) ListUnordered(conversationID, afterID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	q := r.db.Where("conversation_id = ?", conversationID)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	var messages []models.Message
	err := q.Limit(limit).Find(&messages).Error
	return messages, err
}
