package service

import (
	"testing"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/models"
)

func newUserFixture() (*UserService, *MockUserRepository) {
	userRepo := NewMockUserRepository()
	userRepo.Create(&models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", FullName: "Alice A"})
	userRepo.Create(&models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"})
	// Nil redis: the cache layer degrades to pass-through.
	return NewUserService(userRepo, cache.NewUserCache(nil)), userRepo
}

func TestDisplayName(t *testing.T) {
	svc, _ := newUserFixture()

	if got := svc.DisplayName(1); got != "Alice A" {
		t.Errorf("DisplayName(1) = %q, want full name", got)
	}
	// No full name: username stands in.
	if got := svc.DisplayName(2); got != "bob" {
		t.Errorf("DisplayName(2) = %q, want username", got)
	}
	// Unknown sender renders as empty, never as an error.
	if got := svc.DisplayName(99); got != "" {
		t.Errorf("DisplayName(99) = %q, want empty", got)
	}
}

func TestDisplayNamesBatch(t *testing.T) {
	svc, _ := newUserFixture()

	names := svc.DisplayNames([]uint{1, 2, 2, 99})
	if names[1] != "Alice A" || names[2] != "bob" {
		t.Errorf("names = %v", names)
	}
	if names[99] != "" {
		t.Errorf("unknown id resolved to %q", names[99])
	}
}
