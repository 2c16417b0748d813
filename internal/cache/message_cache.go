package cache

import (
	"fmt"
	"time"

	"github.com/aptify/chat-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	MessagePageTTL      = 5 * time.Minute
	ConversationListTTL = 2 * time.Minute
)

// MessageCache handles message-related caching
type MessageCache struct {
	redis *RedisCache
}

// NewMessageCache creates a new message cache
func NewMessageCache(redis *RedisCache) *MessageCache {
	return &MessageCache{redis: redis}
}

func pageKey(conversationID uint) string {
	return fmt.Sprintf("convpage:%d", conversationID)
}

func listKey(userID uint) string {
	return fmt.Sprintf("convlist:%d", userID)
}

// GetPage retrieves the cached latest message page for a conversation
func (mc *MessageCache) GetPage(conversationID uint) ([]models.Message, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(pageKey(conversationID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}

	return messages, true
}

// SetPage caches the latest message page for a conversation
func (mc *MessageCache) SetPage(conversationID uint, messages []models.Message) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return mc.redis.Set(pageKey(conversationID), data, MessagePageTTL)
}

// InvalidatePage removes a conversation's message page from cache
func (mc *MessageCache) InvalidatePage(conversationID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(pageKey(conversationID))
}

// GetConversationList retrieves a user's cached conversation list
func (mc *MessageCache) GetConversationList(userID uint) ([]models.ConversationResponse, bool) {
	if mc == nil || mc.redis == nil {
		return nil, false
	}
	data, err := mc.redis.Get(listKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var conversations []models.ConversationResponse
	if err := msgpack.Unmarshal(data, &conversations); err != nil {
		return nil, false
	}

	return conversations, true
}

// SetConversationList caches a user's conversation list
func (mc *MessageCache) SetConversationList(userID uint, conversations []models.ConversationResponse) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(conversations)
	if err != nil {
		return err
	}
	return mc.redis.Set(listKey(userID), data, ConversationListTTL)
}

// InvalidateConversationList removes a user's conversation list from cache
func (mc *MessageCache) InvalidateConversationList(userID uint) error {
	if mc == nil || mc.redis == nil {
		return nil
	}
	return mc.redis.Delete(listKey(userID))
}
