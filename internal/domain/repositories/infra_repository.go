package repositories

import (
	"context"
	"time"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// LockRepository persists advisory locks. TryInsert must fail on an
// existing resource_id row so callers can arbitrate ownership.
type LockRepository interface {
	TryInsert(ctx context.Context, lock *entities.Lock) error
	Get(ctx context.Context, resourceID string) (*entities.Lock, error)
	// DeleteMatching deletes the row only when its lock_id matches; returns
	// the number of rows removed.
	DeleteMatching(ctx context.Context, resourceID, lockID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RateEventRepository persists rate events
type RateEventRepository interface {
	Record(ctx context.Context, event *entities.RateEvent) error
	CountSince(ctx context.Context, identifier string, action entities.RateAction, since time.Time) (int64, error)
	OldestSince(ctx context.Context, identifier string, action entities.RateAction, since time.Time) (*time.Time, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CacheRepository is the store-backed tier of the two-tier cache
type CacheRepository interface {
	Get(ctx context.Context, key string) (*entities.CacheEntry, error)
	Set(ctx context.Context, entry *entities.CacheEntry) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ErrorEventRepository persists captured errors
type ErrorEventRepository interface {
	CreateBatch(ctx context.Context, events []entities.ErrorEvent) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountByTypeSince(ctx context.Context, since time.Time) (map[string]int64, error)
}
