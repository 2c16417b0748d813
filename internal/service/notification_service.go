package service

import (
	"fmt"
	"log"

	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/repository"
)

// Pusher delivers a payload to a connected user's sockets, if any.
type Pusher interface {
	SendToUser(userID uint, payload interface{}) bool
}

type NotificationService struct {
	notifRepo repository.NotificationRepositoryInterface
	names     NameResolver
	pusher    Pusher
}

// NameResolver maps a user id to a display name for notification titles.
type NameResolver interface {
	DisplayName(userID uint) string
}

func NewNotificationService(notifRepo repository.NotificationRepositoryInterface, names NameResolver, pusher Pusher) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, names: names, pusher: pusher}
}

// Create persists a notification and pushes it to the user if they are
// connected. The push is best-effort; the row is the source of truth.
func (s *NotificationService) Create(userID uint, title, message string, ntype models.NotificationType, link string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    ntype,
	}
	if link != "" {
		n.Link = &link
	}
	if err := s.notifRepo.Create(n); err != nil {
		return nil, err
	}

	if s.pusher != nil {
		delivered := s.pusher.SendToUser(userID, map[string]interface{}{
			"type":         "notification",
			"notification": n.ToResponse(),
		})
		if !delivered {
			log.Printf("notification: user %d offline, %d queued for next fetch", userID, n.ID)
		}
	}
	return n, nil
}

// NotifyMessage raises the "new message" notification, deep-linking to the
// conversation thread.
func (s *NotificationService) NotifyMessage(recipientID, senderID, conversationID uint, preview string) error {
	title := "New message"
	if s.names != nil {
		if name := s.names.DisplayName(senderID); name != "" {
			title = fmt.Sprintf("New message from %s", name)
		}
	}
	link := fmt.Sprintf("/chat/%d", conversationID)
	_, err := s.Create(recipientID, title, preview, models.NotificationMessage, link)
	return err
}

func (s *NotificationService) List(userID uint, limit int) ([]models.Notification, error) {
	return s.notifRepo.ListForUser(userID, limit)
}

func (s *NotificationService) MarkRead(id, userID uint) error {
	return s.notifRepo.MarkRead(id, userID)
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.notifRepo.MarkAllRead(userID)
}

func (s *NotificationService) CountUnread(userID uint) (int64, error) {
	return s.notifRepo.CountUnread(userID)
}
