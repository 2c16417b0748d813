package handlers

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/aptify/chat-backend/internal/httpx"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/aptify/chat-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
)

type MediaHandler struct {
	attachments         *storage.AttachmentStore
	conversationService *service.ConversationService
}

func NewMediaHandler(attachments *storage.AttachmentStore, conversationService *service.ConversationService) *MediaHandler {
	return &MediaHandler{attachments: attachments, conversationService: conversationService}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// GetAttachment streams a stored attachment to a conversation participant.
// The object key is namespaced by sender and conversation, so access is
// checked against the conversation the key points into.
func (h *MediaHandler) GetAttachment(c *fiber.Ctx) error {
	if h.attachments == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	key := strings.TrimSpace(c.Params("*"))
	_, conversationID, err := storage.ParseAttachmentKey(key)
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	if _, err := h.conversationService.Get(conversationID, userID); err != nil {
		// Same answer for missing and forbidden; keys are not probeable.
		return httpx.NotFound(c, "not_found", "Not found")
	}

	obj, st, err := h.attachments.Open(c.Context(), key)
	if err != nil {
		log.Printf("[media] attachment get error key=%q err=%v", key, err)
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	if st.ContentType != "" {
		c.Type(st.ContentType)
	} else {
		c.Type("application/octet-stream")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	// Stream object while capturing any mid-stream errors.
	// (Fiber versions vary; use underlying fasthttp stream writer.)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		flushErr := w.Flush()

		if copyErr != nil {
			log.Printf("[media] attachment stream error key=%q copied=%d err=%v", key, n, copyErr)
			return
		}
		if flushErr != nil {
			log.Printf("[media] attachment stream flush error key=%q copied=%d err=%v", key, n, flushErr)
		}
	})
	return nil
}
