package handlers

import (
	"errors"
	"strconv"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/httpx"
	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/aptify/chat-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	messageService      *service.MessageService
	conversationService *service.ConversationService
	userService         *service.UserService
	messageCache        *cache.MessageCache
}

func NewMessageHandler(messageService *service.MessageService, conversationService *service.ConversationService, userService *service.UserService, messageCache *cache.MessageCache) *MessageHandler {
	return &MessageHandler{
		messageService:      messageService,
		conversationService: conversationService,
		userService:         userService,
		messageCache:        messageCache,
	}
}

// SendMessage appends a message. Multipart bodies carry attachments under
// the "attachments" field; plain JSON bodies are text-only.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	input := service.SendMessageInput{
		SenderRole: httpx.LocalString(c, "role"),
	}

	var closers []func() error
	defer func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}()

	if form, err := c.MultipartForm(); err == nil && form != nil {
		input.Text = firstValue(form.Value, "text")
		input.ConversationID = parseUintField(firstValue(form.Value, "conversation_id"))
		input.RecipientID = parseUintField(firstValue(form.Value, "recipient_id"))

		files := form.File["attachments"]
		if len(files) > validation.MaxAttachmentsPerMessage() {
			return httpx.BadRequest(c, "too_many_attachments", "Too many attachments")
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return httpx.BadRequest(c, "invalid_attachment", "Unreadable attachment")
			}
			closers = append(closers, f.Close)
			input.Attachments = append(input.Attachments, service.AttachmentUpload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			})
		}
	} else {
		var body struct {
			ConversationID uint   `json:"conversation_id"`
			RecipientID    uint   `json:"recipient_id"`
			Text           string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil {
			return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
		}
		input.ConversationID = body.ConversationID
		input.RecipientID = body.RecipientID
		input.Text = body.Text
	}

	if input.ConversationID == 0 && input.RecipientID == 0 {
		return httpx.BadRequest(c, "missing_target", "conversation_id or recipient_id is required")
	}

	message, err := h.messageService.Send(c.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			return httpx.BadRequest(c, "empty_message", "Message needs text or attachments")
		case errors.Is(err, service.ErrSelfConversation):
			return httpx.BadRequest(c, "self_conversation", "Cannot message yourself")
		case errors.Is(err, service.ErrConversationNotFound):
			return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
		default:
			return httpx.Internal(c, "send_message_failed")
		}
	}

	_ = h.messageCache.InvalidatePage(message.ConversationID)
	if conv, err := h.conversationService.Get(message.ConversationID, userID); err == nil {
		_ = h.messageCache.InvalidateConversationList(conv.ParticipantLow)
		_ = h.messageCache.InvalidateConversationList(conv.ParticipantHigh)
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

// GetMessages returns one conversation page, oldest first.
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || conversationID == 0 {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	var afterID uint
	if afterStr := c.Query("after_id"); afterStr != "" {
		after, err := strconv.ParseUint(afterStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_cursor", "Invalid after_id")
		}
		afterID = uint(after)
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	conv, err := h.conversationService.Get(uint(conversationID), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
		default:
			return httpx.Internal(c, "fetch_messages_failed")
		}
	}

	// Only the default page (no cursor, no custom limit) is cached.
	cacheable := afterID == 0 && limit == 0

	var messages []models.Message
	if cacheable {
		if cached, ok := h.messageCache.GetPage(conv.ID); ok {
			messages = cached
		}
	}
	if messages == nil {
		messages, err = h.messageService.History(conv.ID, userID, afterID, limit)
		if err != nil {
			return httpx.Internal(c, "fetch_messages_failed")
		}
		if cacheable && len(messages) > 0 {
			_ = h.messageCache.SetPage(conv.ID, messages)
		}
	}

	senderIDs := make([]uint, 0, len(messages))
	for i := range messages {
		senderIDs = append(senderIDs, messages[i].SenderID)
	}
	names := h.userService.DisplayNames(senderIDs)

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		resp := messages[i].ToResponse()
		resp.SenderName = names[messages[i].SenderID]
		resp.Seen = service.SeenByOther(&messages[i], conv)
		responses = append(responses, resp)
	}

	result := fiber.Map{
		"messages": responses,
		"count":    len(responses),
	}
	if len(messages) > 0 {
		result["next_after_id"] = messages[len(messages)-1].ID
	}

	return c.JSON(result)
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func parseUintField(s string) uint {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}
