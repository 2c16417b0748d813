package handlers

import (
	"errors"
	"strconv"

	"github.com/aptify/chat-backend/internal/httpx"
	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
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

	notifications, err := h.notificationService.List(userID, limit)
	if err != nil {
		return httpx.Internal(c, "fetch_notifications_failed")
	}

	responses := make([]models.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, notifications[i].ToResponse())
	}
	return c.JSON(fiber.Map{"notifications": responses, "count": len(responses)})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	count, err := h.notificationService.CountUnread(userID)
	if err != nil {
		return httpx.Internal(c, "count_notifications_failed")
	}
	return c.JSON(fiber.Map{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return httpx.BadRequest(c, "invalid_notification", "Invalid notification id")
	}

	if err := h.notificationService.MarkRead(uint(id), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "notification_not_found", "Notification not found")
		}
		return httpx.Internal(c, "mark_notification_failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if err := h.notificationService.MarkAllRead(userID); err != nil {
		return httpx.Internal(c, "mark_notifications_failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}

type createNotificationInput struct {
	UserID  uint   `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Create is the admin-only surface for system announcements.
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var input createNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.UserID == 0 || input.Title == "" {
		return httpx.BadRequest(c, "missing_fields", "user_id and title are required")
	}

	n, err := h.notificationService.Create(input.UserID, input.Title, input.Message, models.NotificationSystem, input.Link)
	if err != nil {
		return httpx.Internal(c, "create_notification_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(n.ToResponse())
}
