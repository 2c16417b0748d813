package repository

import (
	"errors"
	"sort"

	"github.com/aptify/chat-backend/internal/models"
)

// MessageQueryStrategy pairs a server-ordered query with a less specific
// fallback plus the comparator that restores the ordering contract
// client-side. Keeping the retry explicit makes the fallback contract
// testable on its own instead of living inside nested error handlers.
type MessageQueryStrategy struct {
	Primary  func() ([]models.Message, error)
	Fallback func() ([]models.Message, error)
	Less     func(a, b models.Message) bool
}

// Load runs the primary query, falling back (and re-sorting) only on
// ErrOrderedQueryUnsupported. Any other error is returned as-is.
func (s MessageQueryStrategy) Load() ([]models.Message, error) {
	messages, err := s.Primary()
	if err == nil {
		return messages, nil
	}
	if s.Fallback == nil || !errors.Is(err, ErrOrderedQueryUnsupported) {
		return nil, err
	}
	messages, err = s.Fallback()
	if err != nil {
		return nil, err
	}
	if s.Less != nil {
		sort.SliceStable(messages, func(i, j int) bool { return s.Less(messages[i], messages[j]) })
	}
	return messages, nil
}

// ByCreationTime is the ascending message comparator: creation time, message
// id as tiebreak.
func ByCreationTime(a, b models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// OrderedMessages builds the standard strategy for one conversation page.
func OrderedMessages(messages MessageRepositoryInterface, conversationID, afterID uint, limit int) MessageQueryStrategy {
	return MessageQueryStrategy{
		Primary:  func() ([]models.Message, error) { return messages.ListOrdered(conversationID, afterID, limit) },
		Fallback: func() ([]models.Message, error) { return messages.ListUnordered(conversationID, afterID, limit) },
		Less:     ByCreationTime,
	}
}
