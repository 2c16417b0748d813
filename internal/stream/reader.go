package stream

import (
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/repository"
)

// ErrPermissionDenied marks a viewer who is not a participant of the
// conversation they tried to stream.
var ErrPermissionDenied = errors.New("viewer is not a conversation participant")

// ConversationFinder is the slice of the conversation repository the reader
// needs for the membership check.
type ConversationFinder interface {
	FindByID(id uint) (*models.Conversation, error)
}

// NameResolver maps a user id to a display name. Implementations are
// expected to cache; the reader additionally memoizes per stream so one
// sender is resolved at most once per open stream.
type NameResolver interface {
	DisplayName(userID uint) string
}

// Reader opens live, ordered message streams over a conversation.
type Reader struct {
	conversations ConversationFinder
	messages      repository.MessageRepositoryInterface
	broker        *Broker
	names         NameResolver
	snapshotLimit int
}

func NewReader(conversations ConversationFinder, messages repository.MessageRepositoryInterface, broker *Broker, names NameResolver) *Reader {
	return &Reader{
		conversations: conversations,
		messages:      messages,
		broker:        broker,
		names:         names,
		snapshotLimit: 200,
	}
}

// Open starts a stream for one viewer. It always returns a usable *Stream:
// a viewer outside the conversation, or a failed initial load, yields a
// closed empty stream whose Err explains why, so callers render "no
// messages" instead of crashing.
func (r *Reader) Open(conversationID, viewerID uint) *Stream {
	s := &Stream{
		conversationID: conversationID,
		viewerID:       viewerID,
		names:          r.names,
		nameCache:      make(map[uint]string),
		seen:           make(map[uint]struct{}),
		loading:        true,
		changed:        make(chan struct{}, 1),
		appended:       make(chan models.Message, 64),
	}

	conv, err := r.conversations.FindByID(conversationID)
	if err != nil {
		log.Printf("stream: loading conversation %d failed: %v", conversationID, err)
		s.finish(err)
		return s
	}
	if !conv.HasParticipant(viewerID) {
		log.Printf("stream: user %d denied on conversation %d", viewerID, conversationID)
		s.finish(ErrPermissionDenied)
		return s
	}
	s.conv = conv

	// Subscribe before the snapshot query so nothing created in between is
	// missed; duplicates are collapsed by message id instead.
	events, cancel := r.broker.Subscribe(conversationID)
	s.cancel = cancel

	snapshot, err := repository.OrderedMessages(r.messages, conversationID, 0, r.snapshotLimit).Load()
	if err != nil {
		log.Printf("stream: snapshot for conversation %d failed: %v", conversationID, err)
		cancel()
		s.finish(err)
		return s
	}
	s.seed(snapshot)

	go s.pump(events)
	return s
}

// Stream is one viewer's live window onto a conversation. Messages are held
// sorted by creation time; Updates fires whenever the snapshot changes.
type Stream struct {
	conversationID uint
	viewerID       uint
	conv           *models.Conversation
	names          NameResolver
	cancel         func()

	mu        sync.Mutex
	msgs      []models.Message
	seen      map[uint]struct{}
	nameCache map[uint]string
	loading   bool
	closed    bool
	err       error

	changed  chan struct{}
	appended chan models.Message
}

func (s *Stream) seed(snapshot []models.Message) {
	s.mu.Lock()
	for _, m := range snapshot {
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.msgs = append(s.msgs, m)
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

func (s *Stream) pump(events <-chan models.Message) {
	defer close(s.appended)
	for m := range events {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if _, dup := s.seen[m.ID]; dup {
			s.mu.Unlock()
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.msgs = append(s.msgs, m)
		// Broker delivery order across instances is not guaranteed.
		sort.SliceStable(s.msgs, func(i, j int) bool {
			return repository.ByCreationTime(s.msgs[i], s.msgs[j])
		})
		s.mu.Unlock()

		select {
		case s.appended <- m:
		default:
		}
		s.notify()
	}
}

func (s *Stream) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// finish closes a stream that never went live.
func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.loading = false
	s.closed = true
	s.mu.Unlock()
	close(s.appended)
	s.notify()
}

// Snapshot returns the current ordered messages with seen state and sender
// names resolved for the viewer.
func (s *Stream) Snapshot() []models.MessageResponse {
	s.mu.Lock()
	msgs := make([]models.Message, len(s.msgs))
	copy(msgs, s.msgs)
	s.mu.Unlock()

	out := make([]models.MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, s.Render(msgs[i]))
	}
	return out
}

// Render fills in the viewer-facing fields of one message: the sender's
// display name, and whether the participant opposite the sender has seen
// it (the "seen" tick on sent messages).
func (s *Stream) Render(m models.Message) models.MessageResponse {
	resp := m.ToResponse()
	resp.SenderName = s.DisplayName(m.SenderID)
	if s.conv != nil && s.conv.HasParticipant(m.SenderID) {
		resp.Seen = m.SeenByUser(s.conv.OtherParticipant(m.SenderID))
	}
	return resp
}

// Loading reports whether the initial snapshot is still pending.
func (s *Stream) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the terminal error of a stream that failed to open, or nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Updates signals snapshot changes; coalesced, never blocks the writer.
func (s *Stream) Updates() <-chan struct{} {
	return s.changed
}

// Appended yields each new message once, for consumers that forward deltas
// instead of re-rendering the snapshot.
func (s *Stream) Appended() <-chan models.Message {
	return s.appended
}

// DisplayName resolves a sender's name, memoized for the stream's lifetime.
func (s *Stream) DisplayName(userID uint) string {
	s.mu.Lock()
	if name, ok := s.nameCache[userID]; ok {
		s.mu.Unlock()
		return name
	}
	s.mu.Unlock()

	var name string
	if s.names != nil {
		name = s.names.DisplayName(userID)
	}

	s.mu.Lock()
	s.nameCache[userID] = name
	s.mu.Unlock()
	return name
}

// Close detaches the stream from the broker. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel() // closes the broker channel; pump drains and exits
	}
}
