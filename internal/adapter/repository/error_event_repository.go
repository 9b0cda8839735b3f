package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ErrorEventRepository handles error event data operations
type ErrorEventRepository struct {
	db *gorm.DB
}

// NewErrorEventRepository creates a new error event repository
func NewErrorEventRepository(db *gorm.DB) *ErrorEventRepository {
	return &ErrorEventRepository{db: db}
}

// CreateBatch inserts a flushed buffer of error events
func (r *ErrorEventRepository) CreateBatch(ctx context.Context, events []entities.ErrorEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 50).Error
}

// CountSince counts captured errors after a point in time
func (r *ErrorEventRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.ErrorEvent{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}

// CountByTypeSince groups captured errors by type
func (r *ErrorEventRepository) CountByTypeSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	type row struct {
		Type  string
		Total int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&entities.ErrorEvent{}).
		Select("type, count(*) as total").
		Where("created_at >= ?", since).
		Group("type").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Type] = rr.Total
	}
	return out, nil
}
