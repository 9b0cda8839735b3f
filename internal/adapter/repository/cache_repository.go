package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// CacheRepository handles the store-backed cache tier
type CacheRepository struct {
	db *gorm.DB
}

// NewCacheRepository creates a new cache repository
func NewCacheRepository(db *gorm.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Get retrieves a live cache entry, nil when absent or expired
func (r *CacheRepository) Get(ctx context.Context, key string) (*entities.CacheEntry, error) {
	var entry entities.CacheEntry
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, time.Now()).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Set upserts a cache entry
func (r *CacheRepository) Set(ctx context.Context, entry *entities.CacheEntry) error {
	if entry == nil {
		return errors.New("entry cannot be nil")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
		}).
		Create(entry).Error
}

// DeleteExpired prunes entries whose TTL has passed
func (r *CacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&entities.CacheEntry{})
	return res.RowsAffected, res.Error
}
