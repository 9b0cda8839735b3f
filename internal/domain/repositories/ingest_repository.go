package repositories

import (
	"context"
	"time"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ChannelRepository persists channels
type ChannelRepository interface {
	Create(ctx context.Context, channel *entities.Channel) error
	GetByID(ctx context.Context, externalID string) (*entities.Channel, error)
	GetByHandle(ctx context.Context, handle string) (*entities.Channel, error)
	UpdateStatus(ctx context.Context, externalID string, status entities.ChannelStatus) error
	UpdateMeta(ctx context.Context, externalID, title, handle string) error
	MarkIndexed(ctx context.Context, externalID string, videoCount int) error
	ListByStatus(ctx context.Context, status entities.ChannelStatus) ([]entities.Channel, error)
	Count(ctx context.Context) (int64, error)
}

// VideoRepository persists videos
type VideoRepository interface {
	Upsert(ctx context.Context, video *entities.Video) error
	GetByID(ctx context.Context, externalID string) (*entities.Video, error)
	ListByChannel(ctx context.Context, channelID string) ([]entities.Video, error)
	NewestPublishedAt(ctx context.Context, channelID string) (*time.Time, error)
	ListQueuedUnprocessed(ctx context.Context, limit int) ([]entities.Video, error)
	SetProcessingQueued(ctx context.Context, externalID string, queued bool) error
	MarkProcessed(ctx context.Context, externalID string, blobPath string, durationSeconds int) error
	MarkFailed(ctx context.Context, externalID string, processingError string) error
	Count(ctx context.Context) (int64, error)
	CountProcessed(ctx context.Context) (int64, error)
}

// ChunkRepository persists transcript chunks
type ChunkRepository interface {
	// ReplaceForVideo atomically swaps the video's chunk set: readers see
	// either the old set or the new set, never a mixture.
	ReplaceForVideo(ctx context.Context, videoID string, chunks []entities.TranscriptChunk) error
	ListByVideo(ctx context.Context, videoID string) ([]entities.TranscriptChunk, error)
	ListByChannel(ctx context.Context, channelID string) ([]entities.TranscriptChunk, error)
	CountByVideo(ctx context.Context, videoID string) (int64, error)
}
