package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// VideoRepository handles video data operations
type VideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Upsert inserts a video row or refreshes its metadata on conflict
func (r *VideoRepository) Upsert(ctx context.Context, video *entities.Video) error {
	if video == nil {
		return errors.New("video cannot be nil")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"channel_id", "title", "description", "published_at", "updated_at"}),
		}).
		Create(video).Error
}

// GetByID retrieves a video by its provider id
func (r *VideoRepository) GetByID(ctx context.Context, externalID string) (*entities.Video, error) {
	var video entities.Video
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &video, nil
}

// ListByChannel retrieves all videos belonging to a channel
func (r *VideoRepository) ListByChannel(ctx context.Context, channelID string) ([]entities.Video, error) {
	var videos []entities.Video
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("published_at DESC").
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// NewestPublishedAt returns the publish time of the channel's newest video
func (r *VideoRepository) NewestPublishedAt(ctx context.Context, channelID string) (*time.Time, error) {
	var video entities.Video
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND published_at IS NOT NULL", channelID).
		Order("published_at DESC").
		First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return video.PublishedAt, nil
}

// ListQueuedUnprocessed retrieves videos waiting for pipeline processing,
// oldest first
func (r *VideoRepository) ListQueuedUnprocessed(ctx context.Context, limit int) ([]entities.Video, error) {
	var videos []entities.Video
	if limit == 0 {
		limit = 5
	}
	if err := r.db.WithContext(ctx).
		Where("processing_queued = ? AND transcript_cached = ?", true, false).
		Order("created_at ASC").
		Limit(limit).
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// SetProcessingQueued flags or clears the dispatch marker
func (r *VideoRepository) SetProcessingQueued(ctx context.Context, externalID string, queued bool) error {
	return r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"processing_queued": queued,
			"updated_at":        time.Now(),
		}).Error
}

// MarkProcessed records a successful pipeline run
func (r *VideoRepository) MarkProcessed(ctx context.Context, externalID string, blobPath string, durationSeconds int) error {
	return r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"transcript_cached":    true,
			"chunks_processed":     true,
			"processing_queued":    false,
			"processing_error":     nil,
			"transcript_blob_path": blobPath,
			"duration_seconds":     durationSeconds,
			"updated_at":           time.Now(),
		}).Error
}

// MarkFailed records a pipeline failure
func (r *VideoRepository) MarkFailed(ctx context.Context, externalID string, processingError string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"transcript_cached": false,
			"processing_queued": false,
			"processing_error":  processingError,
			"updated_at":        time.Now(),
		}).Error
}

// Count returns the total number of videos
func (r *VideoRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Video{}).Count(&n).Error
	return n, err
}

// CountProcessed returns the number of fully indexed videos
func (r *VideoRepository) CountProcessed(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("transcript_cached = ? AND chunks_processed = ?", true, true).
		Count(&n).Error
	return n, err
}
