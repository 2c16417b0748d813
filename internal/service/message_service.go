package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/repository"
	"github.com/aptify/chat-backend/internal/validation"
)

var ErrEmptyMessage = errors.New("message has no text and no attachments")

// AttachmentUploader stores one attachment blob and returns its descriptor.
type AttachmentUploader interface {
	Upload(ctx context.Context, senderID, conversationID uint, name, contentType string, size int64, body io.Reader) (models.Attachment, error)
}

// EventPublisher announces created messages to live streams.
type EventPublisher interface {
	PublishMessage(conversationID uint, msg *models.Message)
}

// Notifier raises an out-of-band notification for the recipient.
type Notifier interface {
	NotifyMessage(recipientID, senderID, conversationID uint, preview string) error
}

type MessageService struct {
	messageRepo   repository.MessageRepositoryInterface
	convRepo      repository.ConversationRepositoryInterface
	conversations *ConversationService
	uploader      AttachmentUploader
	publisher     EventPublisher
	notifier      Notifier
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	convRepo repository.ConversationRepositoryInterface,
	conversations *ConversationService,
	uploader AttachmentUploader,
	publisher EventPublisher,
	notifier Notifier,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		convRepo:      convRepo,
		conversations: conversations,
		uploader:      uploader,
		publisher:     publisher,
		notifier:      notifier,
	}
}

// AttachmentUpload is one incoming file from a multipart send.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type SendMessageInput struct {
	ConversationID uint
	RecipientID    uint
	Text           string
	Attachments    []AttachmentUpload
	SenderRole     string
}

// Send appends a message. Either ConversationID (existing thread) or
// RecipientID (find-or-create) selects the conversation. Attachment
// uploads are per-file best-effort: a failed file is dropped with a log
// line and the rest of the message still sends. Only the message insert
// itself is fatal; the denormalized conversation update, live publish,
// and recipient notification are all allowed to fail without undoing an
// already-persisted message.
func (s *MessageService) Send(ctx context.Context, senderID uint, input SendMessageInput) (*models.Message, error) {
	text := validation.TrimAndLimit(input.Text, validation.MaxMessageLength())
	// Reject before touching the conversation: a blank first message must
	// not materialize a conversation row. With attachments present the
	// conversation id is needed for upload keys, so that case is checked
	// again after the uploads.
	if text == "" && len(input.Attachments) == 0 {
		return nil, ErrEmptyMessage
	}

	var conv *models.Conversation
	var err error
	if input.ConversationID != 0 {
		conv, err = s.conversations.Get(input.ConversationID, senderID)
	} else {
		conv, err = s.conversations.GetOrCreate(senderID, input.RecipientID)
	}
	if err != nil {
		return nil, err
	}

	var attachments models.AttachmentList
	for _, up := range input.Attachments {
		if s.uploader == nil {
			log.Printf("message: attachment %q dropped, no object storage configured", up.Name)
			continue
		}
		att, err := s.uploader.Upload(ctx, senderID, conv.ID, up.Name, up.ContentType, up.Size, up.Body)
		if err != nil {
			log.Printf("message: attachment %q on conversation %d skipped: %v", up.Name, conv.ID, err)
			continue
		}
		attachments = append(attachments, att)
	}

	if text == "" && len(attachments) == 0 {
		return nil, ErrEmptyMessage
	}

	message := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderRole:     input.SenderRole,
		Text:           text,
		Attachments:    attachments,
		ReadBy:         models.BoolMap{senderID: true},
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	recipientID := conv.OtherParticipant(senderID)
	preview := previewOf(message)
	if err := s.convRepo.ApplySend(conv.ID, preview, senderID, recipientID, message.CreatedAt); err != nil {
		log.Printf("message: conversation %d summary update failed: %v", conv.ID, err)
	}

	if s.publisher != nil {
		s.publisher.PublishMessage(conv.ID, message)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyMessage(recipientID, senderID, conv.ID, preview); err != nil {
			log.Printf("message: notifying user %d about conversation %d failed: %v", recipientID, conv.ID, err)
		}
	}

	return message, nil
}

// History loads a conversation page for a viewer, oldest first. The
// server-ordered query runs first; backends that cannot serve it fall
// back to an unordered scan sorted client-side.
func (s *MessageService) History(conversationID, viewerID, afterID uint, limit int) ([]models.Message, error) {
	if _, err := s.conversations.Get(conversationID, viewerID); err != nil {
		return nil, err
	}
	return repository.OrderedMessages(s.messageRepo, conversationID, afterID, limit).Load()
}

func previewOf(m *models.Message) string {
	if m.Text != "" {
		return validation.TruncatePreview(m.Text)
	}
	if len(m.Attachments) == 1 {
		return "\U0001F4CE " + m.Attachments[0].Name
	}
	return "\U0001F4CE Attachments"
}
