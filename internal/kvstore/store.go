// Package kvstore holds small per-partner state (favorites, celebrated milestones,
// anniversary markers, reminder dismissals, pending deletions) behind a keyed store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a keyed byte store. A zero ttl means the key does not expire.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take atomically reads and removes key. Only one concurrent caller gets the value.
	Take(ctx context.Context, key string) ([]byte, error)
	// Keys lists the live keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key prefixes.
const (
	PrefixFavorites         = "favorites:"
	PrefixAchievements      = "achievements:"
	PrefixMilestones        = "milestones:"
	PrefixReminderDismissed = "reminder_dismissed:"
	PrefixPendingDelete     = "pending_delete:"
	PrefixAnniversary       = "anniversary_last:"
)

// FavoritesKey returns the key holding actorID's favorite coupon ids.
func FavoritesKey(actorID string) string { return PrefixFavorites + actorID }

// AchievementsKey returns the key holding actorID's unlocked achievements.
func AchievementsKey(actorID string) string { return PrefixAchievements + actorID }

// MilestonesKey returns the key holding actorID's celebrated milestones.
func MilestonesKey(actorID string) string { return PrefixMilestones + actorID }

// ReminderDismissedKey returns the key holding actorID's reminder dismissals.
func ReminderDismissedKey(actorID string) string { return PrefixReminderDismissed + actorID }

// AnniversaryKey returns the key holding the local date actorID last celebrated an anniversary.
func AnniversaryKey(actorID string) string { return PrefixAnniversary + actorID }

// PendingDeleteKey returns the key marking couponID as scheduled for deletion.
func PendingDeleteKey(couponID string) string { return PrefixPendingDelete + couponID }

// GetJSON loads key into dest.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stores value under key.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// LoadJSON is GetJSON that leaves dest untouched and returns nil when key is absent.
func LoadJSON(ctx context.Context, s Store, key string, dest any) error {
	err := GetJSON(ctx, s, key, dest)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
