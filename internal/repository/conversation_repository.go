package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aptify/chat-backend/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conv *models.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *ConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.First(&conv, id).Error
	return &conv, err
}

func (r *ConversationRepository) FindByParticipants(userA, userB uint) (*models.Conversation, error) {
	low, high := models.NormalizePair(userA, userB)
	var conv models.Conversation
	err := r.db.Where("participant_low = ? AND participant_high = ?", low, high).First(&conv).Error
	return &conv, err
}

func (r *ConversationRepository) ListForUser(userID uint, limit int) ([]models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var convs []models.Conversation
	err := r.db.Where("participant_low = ? OR participant_high = ?", userID, userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}

// ApplySend updates the denormalized send-side fields in one statement. The
// unread map is patched with jsonb_set rather than read-modify-write so
// concurrent sends from both participants cannot clobber each other's flag.
func (r *ConversationRepository) ApplySend(conversationID uint, preview string, senderID, recipientID uint, at time.Time) error {
	return r.db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message": preview,
			"updated_at":   at,
			"unread_for": gorm.Expr(
				"jsonb_set(jsonb_set(COALESCE(unread_for, '{}'::jsonb), ?::text[], 'true'::jsonb), ?::text[], 'false'::jsonb)",
				fmt.Sprintf("{%d}", recipientID),
				fmt.Sprintf("{%d}", senderID),
			),
		}).Error
}

// ClearUnread resets userID's unread marker (boolean map and, for legacy
// rows, the integer counter). The guard in the WHERE clause makes the
// statement a no-op when the marker is already clear, and updated_at is
// pinned so a read does not reorder the conversation list.
func (r *ConversationRepository) ClearUnread(conversationID, userID uint) error {
	key := strconv.FormatUint(uint64(userID), 10)
	path := "{" + key + "}"
	return r.db.Model(&models.Conversation{}).
		Where(
			"id = ? AND (COALESCE(unread_for ->> ?, 'false') = 'true' OR COALESCE((unread_counts ->> ?)::int, 0) > 0)",
			conversationID, key, key,
		).
		Updates(map[string]interface{}{
			"updated_at": gorm.Expr("updated_at"),
			"unread_for": gorm.Expr(
				"jsonb_set(COALESCE(unread_for, '{}'::jsonb), ?::text[], 'false'::jsonb)", path,
			),
			"unread_counts": gorm.Expr(
				"CASE WHEN unread_counts IS NULL THEN NULL ELSE jsonb_set(unread_counts, ?::text[], '0'::jsonb) END", path,
			),
		}).Error
}
