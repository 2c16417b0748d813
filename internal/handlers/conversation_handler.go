package handlers

import (
	"errors"
	"strconv"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/httpx"
	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	userService         *service.UserService
	messageCache        *cache.MessageCache
}

func NewConversationHandler(conversationService *service.ConversationService, userService *service.UserService, messageCache *cache.MessageCache) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		userService:         userService,
		messageCache:        messageCache,
	}
}

type openConversationInput struct {
	PeerID uint `json:"peer_id"`
}

// Open finds or creates the one conversation between the caller and a
// peer. Hitting it twice, or from both sides, lands on the same row.
func (h *ConversationHandler) Open(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input openConversationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.PeerID == 0 {
		return httpx.BadRequest(c, "missing_peer", "peer_id is required")
	}

	conv, err := h.conversationService.GetOrCreate(userID, input.PeerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfConversation):
			return httpx.BadRequest(c, "self_conversation", "Cannot open a conversation with yourself")
		case errors.Is(err, service.ErrConversationNotFound):
			return httpx.NotFound(c, "peer_not_found", "Peer not found")
		default:
			return httpx.Internal(c, "open_conversation_failed")
		}
	}

	resp := conv.ToResponse(userID)
	resp.PeerName = h.userService.DisplayName(resp.PeerID)
	return c.JSON(resp)
}

// List returns the caller's conversations, most recently active first.
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	if cached, ok := h.messageCache.GetConversationList(userID); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return c.JSON(fiber.Map{"conversations": cached, "count": len(cached)})
	}

	conversations, err := h.conversationService.ListForUser(userID, limit)
	if err != nil {
		return httpx.Internal(c, "fetch_conversations_failed")
	}

	peerIDs := make([]uint, 0, len(conversations))
	for i := range conversations {
		peerIDs = append(peerIDs, conversations[i].OtherParticipant(userID))
	}
	names := h.userService.DisplayNames(peerIDs)

	responses := make([]models.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		resp := conversations[i].ToResponse(userID)
		resp.PeerName = names[resp.PeerID]
		responses = append(responses, resp)
	}

	_ = h.messageCache.SetConversationList(userID, responses)

	return c.JSON(fiber.Map{"conversations": responses, "count": len(responses)})
}

// MarkRead clears the caller's unread flag. Repeat calls are no-ops.
func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || conversationID == 0 {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	if err := h.conversationService.MarkRead(uint(conversationID), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			return httpx.NotFound(c, "conversation_not_found", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			return httpx.Forbidden(c, "not_participant", "Not a participant of this conversation")
		default:
			return httpx.Internal(c, "mark_read_failed")
		}
	}

	_ = h.messageCache.InvalidateConversationList(userID)

	return c.JSON(fiber.Map{"ok": true})
}
