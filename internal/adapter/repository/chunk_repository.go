package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ChunkRepository handles transcript chunk data operations
type ChunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceForVideo atomically replaces the video's chunk set. Delete and
// insert run in one transaction so readers never observe a mixture.
func (r *ChunkRepository) ReplaceForVideo(ctx context.Context, videoID string, chunks []entities.TranscriptChunk) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", videoID).Delete(&entities.TranscriptChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// ListByVideo retrieves all chunks for a video in index order
func (r *ChunkRepository) ListByVideo(ctx context.Context, videoID string) ([]entities.TranscriptChunk, error) {
	var chunks []entities.TranscriptChunk
	if err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

// ListByChannel retrieves all chunks for every video of a channel
func (r *ChunkRepository) ListByChannel(ctx context.Context, channelID string) ([]entities.TranscriptChunk, error) {
	var chunks []entities.TranscriptChunk
	if err := r.db.WithContext(ctx).
		Joins("JOIN videos ON videos.external_id = transcript_chunks.video_id").
		Where("videos.channel_id = ?", channelID).
		Order("transcript_chunks.video_id ASC, transcript_chunks.chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

// CountByVideo returns the number of chunks indexed for a video
func (r *ChunkRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entities.TranscriptChunk{}).
		Where("video_id = ?", videoID).
		Count(&n).Error
	return n, err
}
