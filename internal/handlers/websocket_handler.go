package handlers

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/handlers/ws"
	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/service"
	"github.com/aptify/chat-backend/internal/stream"
	"github.com/gofiber/websocket/v2"
)

type WebSocketHandler struct {
	reader              *stream.Reader
	conversationService *service.ConversationService
	hub                 *ws.Hub
	userCache           *cache.UserCache
}

func NewWebSocketHandler(reader *stream.Reader, conversationService *service.ConversationService, userCache *cache.UserCache) *WebSocketHandler {
	return &WebSocketHandler{
		reader:              reader,
		conversationService: conversationService,
		hub:                 ws.NewHub(),
		userCache:           userCache,
	}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	h.hub.Register(userID, c, supportsGzip)

	go func() {
		if err := h.userCache.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online in cache: %v", userID, err)
		}
	}()

	// One live stream per subscribed conversation for this connection.
	var streamsMux sync.Mutex
	streams := make(map[uint]*stream.Stream)

	defer func() {
		h.hub.Unregister(userID)
		streamsMux.Lock()
		for _, s := range streams {
			s.Close()
		}
		streams = nil
		streamsMux.Unlock()
		go func() {
			if err := h.userCache.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline in cache: %v", userID, err)
			}
		}()
	}()

	log.Printf("User %d connected via WebSocket", userID)

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				log.Printf("Error decompressing message from user %d: %v", userID, err)
				h.hub.SendErrorToUser(userID, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		var frame ws.ClientFrame
		if err := json.Unmarshal(messageBytes, &frame); err != nil {
			h.hub.SendErrorToUser(userID, "invalid_frame", "Malformed frame", err.Error())
			continue
		}

		switch frame.Type {
		case ws.FramePing:
			h.hub.SendToUser(userID, map[string]string{"type": ws.EventPong})

		case ws.FrameSubscribe:
			var payload ws.SubscribePayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ConversationID == 0 {
				h.hub.SendErrorToUser(userID, "invalid_payload", "Subscribe needs a conversation_id", "")
				continue
			}
			h.subscribe(userID, payload.ConversationID, streams, &streamsMux)

		case ws.FrameUnsubscribe:
			var payload ws.UnsubscribePayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ConversationID == 0 {
				h.hub.SendErrorToUser(userID, "invalid_payload", "Unsubscribe needs a conversation_id", "")
				continue
			}
			streamsMux.Lock()
			if s, ok := streams[payload.ConversationID]; ok {
				s.Close()
				delete(streams, payload.ConversationID)
			}
			streamsMux.Unlock()

		case ws.FrameMarkRead:
			var payload ws.MarkReadPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ConversationID == 0 {
				h.hub.SendErrorToUser(userID, "invalid_payload", "Mark read needs a conversation_id", "")
				continue
			}
			if err := h.conversationService.MarkRead(payload.ConversationID, userID); err != nil {
				log.Printf("ws: mark read on conversation %d for user %d failed: %v", payload.ConversationID, userID, err)
			}

		default:
			h.hub.SendErrorToUser(userID, "unknown_frame", "Unknown frame type", frame.Type)
		}
	}
}

// subscribe opens a stream, replays its snapshot and forwards live deltas
// until the stream or the connection goes away. A failed open still gets a
// snapshot event: an empty one, matching the "no messages" rendering.
func (h *WebSocketHandler) subscribe(userID, conversationID uint, streams map[uint]*stream.Stream, streamsMux *sync.Mutex) {
	streamsMux.Lock()
	if _, dup := streams[conversationID]; dup {
		streamsMux.Unlock()
		return
	}
	streamsMux.Unlock()

	s := h.reader.Open(conversationID, userID)
	if err := s.Err(); err != nil {
		log.Printf("ws: stream on conversation %d for user %d unavailable: %v", conversationID, userID, err)
		h.hub.SendToUser(userID, ws.NewSnapshotEvent(conversationID, []models.MessageResponse{}))
		return
	}

	streamsMux.Lock()
	if streams == nil {
		streamsMux.Unlock()
		s.Close()
		return
	}
	streams[conversationID] = s
	streamsMux.Unlock()

	h.hub.SendToUser(userID, ws.NewSnapshotEvent(conversationID, s.Snapshot()))

	go func() {
		for msg := range s.Appended() {
			if !h.hub.SendToUser(userID, ws.NewMessageEvent(conversationID, s.Render(msg))) {
				s.Close()
				return
			}
		}
	}()
}
