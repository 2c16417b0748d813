package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/aptify/chat-backend/internal/models"
	"gorm.io/gorm"
)

// MockUserRepository is an in-memory UserRepositoryInterface for testing
type MockUserRepository struct {
	users  map[uint]*models.User
	nextID uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(user *models.User) error {
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByUsername(username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// applySendCall records one ApplySend invocation for assertions
type applySendCall struct {
	ConversationID uint
	Preview        string
	SenderID       uint
	RecipientID    uint
}

// MockConversationRepository is an in-memory ConversationRepositoryInterface
type MockConversationRepository struct {
	conversations map[uint]*models.Conversation
	nextID        uint

	ApplySendCalls   []applySendCall
	ClearUnreadCalls int
	CreateErr        error
	ApplySendErr     error

	// ParticipantMisses makes FindByParticipants report not-found that
	// many times, simulating a row created by a concurrent request.
	ParticipantMisses int
}

func NewMockConversationRepository() *MockConversationRepository {
	return &MockConversationRepository{conversations: make(map[uint]*models.Conversation), nextID: 1}
}

func (m *MockConversationRepository) Create(conv *models.Conversation) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, existing := range m.conversations {
		if existing.ParticipantLow == conv.ParticipantLow && existing.ParticipantHigh == conv.ParticipantHigh {
			return errors.New("duplicate key value violates unique constraint \"idx_conversation_pair\"")
		}
	}
	if conv.ID == 0 {
		conv.ID = m.nextID
		m.nextID++
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	m.conversations[conv.ID] = conv
	return nil
}

func (m *MockConversationRepository) FindByID(id uint) (*models.Conversation, error) {
	if c, ok := m.conversations[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) FindByParticipants(userA, userB uint) (*models.Conversation, error) {
	if m.ParticipantMisses > 0 {
		m.ParticipantMisses--
		return nil, gorm.ErrRecordNotFound
	}
	low, high := models.NormalizePair(userA, userB)
	for _, c := range m.conversations {
		if c.ParticipantLow == low && c.ParticipantHigh == high {
			copied := *c
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) ListForUser(userID uint, limit int) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, c := range m.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockConversationRepository) ApplySend(conversationID uint, preview string, senderID, recipientID uint, at time.Time) error {
	m.ApplySendCalls = append(m.ApplySendCalls, applySendCall{conversationID, preview, senderID, recipientID})
	if m.ApplySendErr != nil {
		return m.ApplySendErr
	}
	c, ok := m.conversations[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if c.UnreadFor == nil {
		c.UnreadFor = models.BoolMap{}
	}
	c.LastMessage = preview
	c.UnreadFor[recipientID] = true
	c.UnreadFor[senderID] = false
	c.UpdatedAt = at
	return nil
}

func (m *MockConversationRepository) ClearUnread(conversationID, userID uint) error {
	m.ClearUnreadCalls++
	c, ok := m.conversations[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if c.UnreadFor == nil {
		c.UnreadFor = models.BoolMap{}
	}
	c.UnreadFor[userID] = false
	return nil
}

// MockMessageRepository is an in-memory MessageRepositoryInterface. Setting
// OrderedErr makes ListOrdered fail, exercising the fallback path.
type MockMessageRepository struct {
	messages   map[uint]*models.Message
	nextID     uint
	OrderedErr error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{messages: make(map[uint]*models.Message), nextID: 1}
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	m.messages[message.ID] = message
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) collect(conversationID, afterID uint, limit int) []models.Message {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if afterID > 0 && msg.ID <= afterID {
			continue
		}
		out = append(out, *msg)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MockMessageRepository) ListOrdered(conversationID, afterID uint, limit int) ([]models.Message, error) {
	if m.OrderedErr != nil {
		return nil, m.OrderedErr
	}
	out := m.collect(conversationID, afterID, limit)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockMessageRepository) ListUnordered(conversationID, afterID uint, limit int) ([]models.Message, error) {
	// Map iteration order stands in for an unordered backend scan.
	return m.collect(conversationID, afterID, limit), nil
}

// MockNotificationRepository is an in-memory NotificationRepositoryInterface
type MockNotificationRepository struct {
	notifications map[uint]*models.Notification
	nextID        uint
	CreateErr     error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{notifications: make(map[uint]*models.Notification), nextID: 1}
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if n.ID == 0 {
		n.ID = m.nextID
		m.nextID++
	}
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return nil
}

func (m *MockNotificationRepository) ListForUser(userID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(id, userID uint) error {
	if n, ok := m.notifications[id]; ok && n.UserID == userID {
		n.Read = true
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *MockNotificationRepository) MarkAllRead(userID uint) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (m *MockNotificationRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// mockUploader fakes attachment storage; names in FailNames error out.
type mockUploader struct {
	FailNames map[string]bool
	Uploaded  []string
}

func (m *mockUploader) Upload(ctx context.Context, senderID, conversationID uint, name, contentType string, size int64, body io.Reader) (models.Attachment, error) {
	if m.FailNames[name] {
		return models.Attachment{}, errors.New("upload failed")
	}
	m.Uploaded = append(m.Uploaded, name)
	return models.Attachment{Name: name, URL: "/api/media/attachments/chat/1/1/" + name, Type: contentType, Size: size}, nil
}

// mockPublisher records published messages
type mockPublisher struct {
	mu        sync.Mutex
	Published []uint
}

func (m *mockPublisher) PublishMessage(conversationID uint, msg *models.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, msg.ID)
}

// mockNotifier records notify calls and can fail on demand
type mockNotifier struct {
	Calls []applySendCall
	Err   error
}

func (m *mockNotifier) NotifyMessage(recipientID, senderID, conversationID uint, preview string) error {
	m.Calls = append(m.Calls, applySendCall{conversationID, preview, senderID, recipientID})
	return m.Err
}

// mockPusher is an offline-by-default Pusher
type mockPusher struct {
	Online   map[uint]bool
	Payloads []interface{}
}

func (m *mockPusher) SendToUser(userID uint, payload interface{}) bool {
	if !m.Online[userID] {
		return false
	}
	m.Payloads = append(m.Payloads, payload)
	return true
}

// staticNames is a fixed NameResolver
type staticNames map[uint]string

func (s staticNames) DisplayName(userID uint) string { return s[userID] }
