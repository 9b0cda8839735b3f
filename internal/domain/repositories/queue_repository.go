package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// QueueRepository persists channel queue items
type QueueRepository interface {
	Create(ctx context.Context, item *entities.ChannelQueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ChannelQueueItem, error)
	// GetActiveForChannel returns the pending or processing row for a
	// channel, nil when none exists.
	GetActiveForChannel(ctx context.Context, channelID string) (*entities.ChannelQueueItem, error)
	ListPending(ctx context.Context, limit int) ([]entities.ChannelQueueItem, error)
	// PendingPosition returns 1 + count of pending rows created earlier.
	PendingPosition(ctx context.Context, id uuid.UUID) (int, error)
	Update(ctx context.Context, item *entities.ChannelQueueItem) error
	UpdateProgress(ctx context.Context, id uuid.UUID, index int, title string) error
	MarkProcessing(ctx context.Context, id uuid.UUID, totalVideos int, eta time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID, videosProcessed int) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	// ResetFailed resets up to limit failed rows with retry_count below the
	// cap back to pending, incrementing retry_count and clearing the error.
	ResetFailed(ctx context.Context, limit int) (int, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context, status entities.QueueStatus) (int64, error)
}
