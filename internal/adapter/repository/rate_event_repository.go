package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// RateEventRepository handles rate event data operations
type RateEventRepository struct {
	db *gorm.DB
}

// NewRateEventRepository creates a new rate event repository
func NewRateEventRepository(db *gorm.DB) *RateEventRepository {
	return &RateEventRepository{db: db}
}

// Record appends a rate event
func (r *RateEventRepository) Record(ctx context.Context, event *entities.RateEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// CountSince counts events for an identifier/action in the sliding window
func (r *RateEventRepository) CountSince(ctx context.Context, identifier string, action entities.RateAction, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.RateEvent{}).
		Where("identifier = ? AND action = ? AND created_at >= ?", identifier, action, since).
		Count(&n).Error
	return n, err
}

// OldestSince returns the creation time of the oldest event in the window,
// used to compute the window reset time
func (r *RateEventRepository) OldestSince(ctx context.Context, identifier string, action entities.RateAction, since time.Time) (*time.Time, error) {
	var event entities.RateEvent
	err := r.db.WithContext(ctx).
		Where("identifier = ? AND action = ? AND created_at >= ?", identifier, action, since).
		Order("created_at ASC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event.CreatedAt, nil
}

// DeleteBefore prunes events older than the cutoff
func (r *RateEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&entities.RateEvent{})
	return res.RowsAffected, res.Error
}
