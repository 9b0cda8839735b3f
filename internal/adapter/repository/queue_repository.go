package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// QueueRepository handles channel queue item data operations
type QueueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *gorm.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Create inserts a queue item
func (r *QueueRepository) Create(ctx context.Context, item *entities.ChannelQueueItem) error {
	if item == nil {
		return errors.New("queue item cannot be nil")
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// GetByID retrieves a queue item by id
func (r *QueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ChannelQueueItem, error) {
	var item entities.ChannelQueueItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetActiveForChannel returns the pending or processing row for a channel
func (r *QueueRepository) GetActiveForChannel(ctx context.Context, channelID string) (*entities.ChannelQueueItem, error) {
	var item entities.ChannelQueueItem
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND status IN ?", channelID,
			[]entities.QueueStatus{entities.QueueStatusPending, entities.QueueStatusProcessing}).
		Order("created_at ASC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListPending retrieves pending items oldest first
func (r *QueueRepository) ListPending(ctx context.Context, limit int) ([]entities.ChannelQueueItem, error) {
	var items []entities.ChannelQueueItem
	if limit == 0 {
		limit = 5
	}
	if err := r.db.WithContext(ctx).
		Where("status = ?", entities.QueueStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// PendingPosition returns 1 + count of pending rows created earlier.
// Returns 0 when the item is not pending.
func (r *QueueRepository) PendingPosition(ctx context.Context, id uuid.UUID) (int, error) {
	item, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if item == nil || item.Status != entities.QueueStatusPending {
		return 0, nil
	}
	var earlier int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("status = ? AND created_at < ?", entities.QueueStatusPending, item.CreatedAt).
		Count(&earlier).Error; err != nil {
		return 0, err
	}
	return int(earlier) + 1, nil
}

// Update saves the full queue item
func (r *QueueRepository) Update(ctx context.Context, item *entities.ChannelQueueItem) error {
	if item == nil {
		return errors.New("queue item cannot be nil")
	}
	return r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("id = ?", item.ID).
		Save(item).Error
}

// UpdateProgress records the current position inside a channel run
func (r *QueueRepository) UpdateProgress(ctx context.Context, id uuid.UUID, index int, title string) error {
	return r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_video_index": index,
			"current_video_title": title,
			"updated_at":          time.Now(),
		}).Error
}

// MarkProcessing transitions pending→processing with the video total and ETA
func (r *QueueRepository) MarkProcessing(ctx context.Context, id uuid.UUID, totalVideos int, eta time.Time) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":                  entities.QueueStatusProcessing,
			"total_videos":            totalVideos,
			"started_at":              now,
			"estimated_completion_at": eta,
			"updated_at":              now,
		}).Error
}

// MarkCompleted transitions processing→completed
func (r *QueueRepository) MarkCompleted(ctx context.Context, id uuid.UUID, videosProcessed int) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           entities.QueueStatusCompleted,
			"videos_processed": videosProcessed,
			"completed_at":     now,
			"updated_at":       now,
		}).Error
}

// MarkFailed transitions to failed, retaining the retry count
func (r *QueueRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        entities.QueueStatusFailed,
			"error_message": errMsg,
			"completed_at":  now,
			"updated_at":    now,
		}).Error
}

// ResetFailed resets up to limit retryable failed rows to pending
func (r *QueueRepository) ResetFailed(ctx context.Context, limit int) (int, error) {
	if limit == 0 {
		limit = 5
	}
	var items []entities.ChannelQueueItem
	if err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", entities.QueueStatusFailed, entities.MaxQueueRetries).
		Order("updated_at ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, err
	}
	reset := 0
	for _, item := range items {
		err := r.db.WithContext(ctx).
			Model(&entities.ChannelQueueItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"status":        entities.QueueStatusPending,
				"retry_count":   gorm.Expr("retry_count + 1"),
				"error_message": nil,
				"updated_at":    time.Now(),
			}).Error
		if err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}

// DeleteCompletedBefore garbage-collects completed rows older than cutoff
func (r *QueueRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", entities.QueueStatusCompleted, cutoff).
		Delete(&entities.ChannelQueueItem{})
	return res.RowsAffected, res.Error
}

// CountByStatus returns the number of queue rows in a given status
func (r *QueueRepository) CountByStatus(ctx context.Context, status entities.QueueStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.ChannelQueueItem{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}
