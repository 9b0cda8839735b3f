package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ChannelRepository handles channel data operations
type ChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts a channel row, ignoring conflicts on an existing id
func (r *ChannelRepository) Create(ctx context.Context, channel *entities.Channel) error {
	if channel == nil {
		return errors.New("channel cannot be nil")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(channel).Error
}

// GetByID retrieves a channel by its provider id
func (r *ChannelRepository) GetByID(ctx context.Context, externalID string) (*entities.Channel, error) {
	var channel entities.Channel
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

// GetByHandle retrieves a channel by its public handle
func (r *ChannelRepository) GetByHandle(ctx context.Context, handle string) (*entities.Channel, error) {
	var channel entities.Channel
	if err := r.db.WithContext(ctx).Where("handle = ?", handle).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

// UpdateStatus updates the channel status
func (r *ChannelRepository) UpdateStatus(ctx context.Context, externalID string, status entities.ChannelStatus) error {
	return r.db.WithContext(ctx).
		Model(&entities.Channel{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// UpdateMeta refreshes the channel's title and handle from upstream
func (r *ChannelRepository) UpdateMeta(ctx context.Context, externalID, title, handle string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Channel{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"title":      title,
			"handle":     handle,
			"updated_at": time.Now(),
		}).Error
}

// MarkIndexed transitions a channel to ready with its final video count
func (r *ChannelRepository) MarkIndexed(ctx context.Context, externalID string, videoCount int) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.Channel{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"status":          entities.ChannelStatusReady,
			"video_count":     videoCount,
			"last_indexed_at": now,
			"updated_at":      now,
		}).Error
}

// ListByStatus retrieves all channels with a given status
func (r *ChannelRepository) ListByStatus(ctx context.Context, status entities.ChannelStatus) ([]entities.Channel, error) {
	var channels []entities.Channel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// Count returns the total number of channels
func (r *ChannelRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Channel{}).Count(&n).Error
	return n, err
}
