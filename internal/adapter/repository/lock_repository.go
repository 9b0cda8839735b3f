package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// LockRepository handles advisory lock rows
type LockRepository struct {
	db *gorm.DB
}

// NewLockRepository creates a new lock repository
func NewLockRepository(db *gorm.DB) *LockRepository {
	return &LockRepository{db: db}
}

// TryInsert creates the lock row; a unique-key collision surfaces as an error
func (r *LockRepository) TryInsert(ctx context.Context, lock *entities.Lock) error {
	if lock == nil {
		return errors.New("lock cannot be nil")
	}
	return r.db.WithContext(ctx).Create(lock).Error
}

// Get retrieves the current lock row for a resource
func (r *LockRepository) Get(ctx context.Context, resourceID string) (*entities.Lock, error) {
	var lock entities.Lock
	if err := r.db.WithContext(ctx).Where("resource_id = ?", resourceID).First(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

// DeleteMatching deletes the row only when its lock_id matches the held lease
func (r *LockRepository) DeleteMatching(ctx context.Context, resourceID, lockID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("resource_id = ? AND lock_id = ?", resourceID, lockID).
		Delete(&entities.Lock{})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes all rows whose TTL has passed
func (r *LockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&entities.Lock{})
	return res.RowsAffected, res.Error
}
