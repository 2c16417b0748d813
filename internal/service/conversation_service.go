package service

import (
	"errors"
	"log"

	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrSelfConversation     = errors.New("cannot open a conversation with yourself")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrConversationNotFound = errors.New("conversation not found")
)

type ConversationService struct {
	convRepo repository.ConversationRepositoryInterface
	userRepo repository.UserRepositoryInterface
}

func NewConversationService(convRepo repository.ConversationRepositoryInterface, userRepo repository.UserRepositoryInterface) *ConversationService {
	return &ConversationService{convRepo: convRepo, userRepo: userRepo}
}

// GetOrCreate returns the single conversation between two users, creating
// it if this is their first contact. The pair is unordered: (a, b) and
// (b, a) resolve to the same row. Lookup runs first so the common path
// writes nothing; the unique pair index backs the create against races.
func (s *ConversationService) GetOrCreate(userID, peerID uint) (*models.Conversation, error) {
	if userID == peerID {
		return nil, ErrSelfConversation
	}
	if _, err := s.userRepo.FindByID(peerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	conv, err := s.convRepo.FindByParticipants(userID, peerID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	low, high := models.NormalizePair(userID, peerID)
	conv = &models.Conversation{
		ParticipantLow:  low,
		ParticipantHigh: high,
		UnreadFor:       models.BoolMap{},
	}
	if err := s.convRepo.Create(conv); err != nil {
		// A concurrent create for the same pair trips the unique index;
		// whoever won holds the row we want.
		existing, findErr := s.convRepo.FindByParticipants(userID, peerID)
		if findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return conv, nil
}

// Get loads a conversation the viewer participates in.
func (s *ConversationService) Get(conversationID, viewerID uint) (*models.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *ConversationService) ListForUser(userID uint, limit int) ([]models.Conversation, error) {
	return s.convRepo.ListForUser(userID, limit)
}

// MarkRead clears the viewer's unread flag on a conversation. Calling it
// on an already-read conversation is a no-op that touches nothing, so
// clients can fire it on every open without churning updated_at.
func (s *ConversationService) MarkRead(conversationID, viewerID uint) error {
	conv, err := s.Get(conversationID, viewerID)
	if err != nil {
		return err
	}
	if !conv.UnreadBy(viewerID) {
		return nil
	}
	if err := s.convRepo.ClearUnread(conversationID, viewerID); err != nil {
		log.Printf("conversation: clearing unread for user %d on %d failed: %v", viewerID, conversationID, err)
		return err
	}
	return nil
}

// SeenByOther reports whether the non-sender participant has seen a
// message. Used to render the sender's "seen" tick.
func SeenByOther(msg *models.Message, conv *models.Conversation) bool {
	if !conv.HasParticipant(msg.SenderID) {
		return false
	}
	return msg.SeenByUser(conv.OtherParticipant(msg.SenderID))
}
