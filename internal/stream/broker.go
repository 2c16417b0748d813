package stream

import (
	"fmt"
	"log"
	"sync"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/models"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const eventChannelPrefix = "chat:events:"

// event is the cross-instance wire form of a message append.
type event struct {
	Instance       string         `msgpack:"instance"`
	ConversationID uint           `msgpack:"conversation_id"`
	Message        models.Message `msgpack:"message"`
}

// Broker fans message-created events out to per-conversation subscribers.
// With Redis configured it also bridges events between instances over
// pub/sub; without it, delivery is process-local only.
type Broker struct {
	mu         sync.RWMutex
	subs       map[uint]map[chan models.Message]struct{}
	redis      *cache.RedisCache
	instanceID string
}

func NewBroker(redisCache *cache.RedisCache) *Broker {
	b := &Broker{
		subs:       make(map[uint]map[chan models.Message]struct{}),
		redis:      redisCache,
		instanceID: uuid.NewString(),
	}
	if redisCache != nil {
		go b.relayLoop()
	}
	return b
}

// relayLoop feeds events published by other instances into local subscribers.
func (b *Broker) relayLoop() {
	pubsub := b.redis.PSubscribe(eventChannelPrefix + "*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev event
		if err := msgpack.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("stream: dropping undecodable event: %v", err)
			continue
		}
		if ev.Instance == b.instanceID {
			continue // already delivered locally
		}
		b.deliver(ev.ConversationID, ev.Message)
	}
}

// PublishMessage announces a freshly created message to all subscribers of
// its conversation. Best-effort: a failed Redis publish only costs remote
// instances the event.
func (b *Broker) PublishMessage(conversationID uint, msg *models.Message) {
	b.deliver(conversationID, *msg)

	if b.redis == nil {
		return
	}
	payload, err := msgpack.Marshal(event{
		Instance:       b.instanceID,
		ConversationID: conversationID,
		Message:        *msg,
	})
	if err != nil {
		log.Printf("stream: encoding event for conversation %d failed: %v", conversationID, err)
		return
	}
	channel := fmt.Sprintf("%s%d", eventChannelPrefix, conversationID)
	if err := b.redis.Publish(channel, payload); err != nil {
		log.Printf("stream: publish to %s failed: %v", channel, err)
	}
}

func (b *Broker) deliver(conversationID uint, msg models.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[conversationID] {
		select {
		case ch <- msg:
		default:
			log.Printf("stream: subscriber lagging on conversation %d, dropping event", conversationID)
		}
	}
}

// Subscribe registers a live listener for one conversation. The returned
// cancel func must be called on teardown; it closes the channel.
func (b *Broker) Subscribe(conversationID uint) (<-chan models.Message, func()) {
	ch := make(chan models.Message, 64)

	b.mu.Lock()
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[chan models.Message]struct{})
	}
	b.subs[conversationID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[conversationID], ch)
			if len(b.subs[conversationID]) == 0 {
				delete(b.subs, conversationID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount reports how many live listeners a conversation has.
func (b *Broker) SubscriberCount(conversationID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[conversationID])
}
