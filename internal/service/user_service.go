package service

import (
	"errors"
	"log"

	"github.com/aptify/chat-backend/internal/cache"
	"github.com/aptify/chat-backend/internal/models"
	"github.com/aptify/chat-backend/internal/repository"
	"gorm.io/gorm"
)

type UserService struct {
	userRepo  repository.UserRepositoryInterface
	userCache *cache.UserCache
}

func NewUserService(userRepo repository.UserRepositoryInterface, userCache *cache.UserCache) *UserService {
	return &UserService{userRepo: userRepo, userCache: userCache}
}

func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	return s.userRepo.FindByID(userID)
}

func cachedProfileOf(user *models.User) *cache.CachedProfile {
	return &cache.CachedProfile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Role:        user.Role,
	}
}

// DisplayName resolves a user id to the name the chat UI shows. Profiles
// are cached; an unknown or failed lookup comes back empty so message
// rendering never fails on a name.
func (s *UserService) DisplayName(userID uint) string {
	if profile, ok := s.userCache.GetProfile(userID); ok {
		return profile.DisplayName
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("user: resolving display name for %d failed: %v", userID, err)
		}
		return ""
	}

	if err := s.userCache.SetProfile(cachedProfileOf(user)); err != nil {
		log.Printf("user: caching profile %d failed: %v", userID, err)
	}
	return user.DisplayName()
}

// DisplayNames resolves a batch of ids, hitting the database once for the
// ids the cache misses.
func (s *UserService) DisplayNames(userIDs []uint) map[uint]string {
	names := make(map[uint]string, len(userIDs))
	var misses []uint
	for _, id := range userIDs {
		if _, done := names[id]; done {
			continue
		}
		if profile, ok := s.userCache.GetProfile(id); ok {
			names[id] = profile.DisplayName
		} else {
			names[id] = ""
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return names
	}

	users, err := s.userRepo.FindByIDs(misses)
	if err != nil {
		log.Printf("user: batch display name lookup failed: %v", err)
		return names
	}
	for i := range users {
		names[users[i].ID] = users[i].DisplayName()
		if err := s.userCache.SetProfile(cachedProfileOf(&users[i])); err != nil {
			log.Printf("user: caching profile %d failed: %v", users[i].ID, err)
		}
	}
	return names
}
