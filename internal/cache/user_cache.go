package cache

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ProfileTTL     = 10 * time.Minute
	OnlineUsersTTL = 90 * time.Second // Match pong timeout
)

// CachedProfile is the slice of a user the chat UI needs per message: the
// display name the stream reader resolves for each sender.
type CachedProfile struct {
	ID          uint   `msgpack:"id"`
	Username    string `msgpack:"username"`
	DisplayName string `msgpack:"display_name"`
	Role        string `msgpack:"role"`
}

// UserCache handles user-related caching
type UserCache struct {
	redis *RedisCache
}

// NewUserCache creates a new user cache
func NewUserCache(redis *RedisCache) *UserCache {
	return &UserCache{redis: redis}
}

func profileKey(userID uint) string {
	return fmt.Sprintf("profile:%d", userID)
}

// GetProfile retrieves a cached user profile
func (uc *UserCache) GetProfile(userID uint) (*CachedProfile, bool) {
	if uc == nil || uc.redis == nil {
		return nil, false
	}
	data, err := uc.redis.Get(profileKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var profile CachedProfile
	if err := msgpack.Unmarshal(data, &profile); err != nil {
		return nil, false
	}

	return &profile, true
}

// SetProfile caches a user profile
func (uc *UserCache) SetProfile(profile *CachedProfile) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(profile)
	if err != nil {
		return err
	}
	return uc.redis.Set(profileKey(profile.ID), data, ProfileTTL)
}

// InvalidateProfile removes a user profile from cache
func (uc *UserCache) InvalidateProfile(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	return uc.redis.Delete(profileKey(userID))
}

// SetUserOnline adds a user to the online users set
func (uc *UserCache) SetUserOnline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	if err := uc.redis.SetAdd("online:users", userID); err != nil {
		return err
	}

	// Individual key with TTL for auto-expiration
	return uc.redis.Set(fmt.Sprintf("online:%d", userID), []byte("1"), OnlineUsersTTL)
}

// SetUserOffline removes a user from the online users set
func (uc *UserCache) SetUserOffline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	if err := uc.redis.SetRemove("online:users", userID); err != nil {
		return err
	}
	return uc.redis.Delete(fmt.Sprintf("online:%d", userID))
}

// IsUserOnline checks if a user is online
func (uc *UserCache) IsUserOnline(userID uint) bool {
	if uc == nil || uc.redis == nil {
		return false
	}
	return uc.redis.Exists(fmt.Sprintf("online:%d", userID))
}

// RefreshUserOnline extends the TTL for an online user
func (uc *UserCache) RefreshUserOnline(userID uint) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	return uc.redis.Set(fmt.Sprintf("online:%d", userID), []byte("1"), OnlineUsersTTL)
}
