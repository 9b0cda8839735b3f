package queue

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/domain/entities"
)

// ChannelRunner drives a queued channel ingest
type ChannelRunner interface {
	ProcessQueueItem(ctx context.Context, qid uuid.UUID) error
}

// VideoRunner drives a single video ingest
type VideoRunner interface {
	Process(ctx context.Context, videoID string) error
}

// QueueStore is the queue persistence surface the service needs
type QueueStore interface {
	Create(ctx context.Context, item *entities.ChannelQueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ChannelQueueItem, error)
	GetActiveForChannel(ctx context.Context, channelID string) (*entities.ChannelQueueItem, error)
	PendingPosition(ctx context.Context, id uuid.UUID) (int, error)
}

// ChannelStore creates channel rows on first ingest
type ChannelStore interface {
	Create(ctx context.Context, channel *entities.Channel) error
}

// VideoStore is the video persistence surface the service needs
type VideoStore interface {
	GetByID(ctx context.Context, externalID string) (*entities.Video, error)
	Upsert(ctx context.Context, video *entities.Video) error
	SetProcessingQueued(ctx context.Context, externalID string, queued bool) error
}

// EnqueueResult reports the outcome of an enqueue request. Success is
// false when an equivalent request is already queued or processing, or the
// target is already fully indexed.
type EnqueueResult struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Item    *entities.ChannelQueueItem `json:"item,omitempty"`
}

// Service accepts ingest requests and persists them durably. Dispatch is
// idempotent: duplicate requests return the existing state.
type Service struct {
	queue    QueueStore
	channels ChannelStore
	videos   VideoStore
	channelR ChannelRunner
	videoR   VideoRunner
	logger   *zap.Logger
}

// NewService wires the queue service
func NewService(
	queue QueueStore,
	channels ChannelStore,
	videos VideoStore,
	channelRunner ChannelRunner,
	videoRunner VideoRunner,
	logger *zap.Logger,
) *Service {
	return &Service{
		queue:    queue,
		channels: channels,
		videos:   videos,
		channelR: channelRunner,
		videoR:   videoRunner,
		logger:   logger,
	}
}

// EnqueueChannel queues a channel for ingestion. High-priority requests
// are dispatched immediately; the pipeline's lock still guarantees
// at-most-one concurrent run per queue item.
func (s *Service) EnqueueChannel(ctx context.Context, channelID string, userID, userEmail *string, priority entities.QueuePriority) (*EnqueueResult, error) {
	if channelID == "" {
		return nil, apperrors.ErrInvalidArgument("channelId is required")
	}

	active, err := s.queue.GetActiveForChannel(ctx, channelID)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("check active queue item", err)
	}
	if active != nil {
		return &EnqueueResult{
			Success: false,
			Message: "channel is already queued or processing",
			Item:    active,
		}, nil
	}

	if err := s.channels.Create(ctx, entities.NewChannel(channelID, "")); err != nil {
		return nil, apperrors.ErrStoreFailed("create channel", err)
	}

	item := entities.NewChannelQueueItem(channelID, userID, priority)
	item.RequestedEmail = userEmail
	if err := s.queue.Create(ctx, item); err != nil {
		return nil, apperrors.ErrStoreFailed("create queue item", err)
	}

	s.logger.Info("queue.channel.enqueued",
		zap.String("queue_id", item.ID.String()),
		zap.String("channel_id", channelID),
		zap.String("priority", string(item.Priority)),
	)

	if item.Priority == entities.QueuePriorityHigh {
		qid := item.ID
		go func() {
			if err := s.channelR.ProcessQueueItem(context.Background(), qid); err != nil {
				s.logger.Warn("queue.channel.immediate_dispatch_failed",
					zap.String("queue_id", qid.String()),
					zap.Error(err),
				)
			}
		}()
	}

	return &EnqueueResult{Success: true, Message: "channel queued for processing", Item: item}, nil
}

// EnqueueVideo queues an ad-hoc video for ingestion
func (s *Service) EnqueueVideo(ctx context.Context, videoID string, userID *string, priority entities.QueuePriority) (*EnqueueResult, error) {
	if videoID == "" {
		return nil, apperrors.ErrInvalidArgument("videoId is required")
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("load video", err)
	}
	if video != nil && video.IsProcessed() {
		return &EnqueueResult{Success: false, Message: "video is already processed"}, nil
	}
	if video != nil && video.ProcessingQueued {
		return &EnqueueResult{Success: false, Message: "video is already queued"}, nil
	}

	if video == nil {
		if err := s.videos.Upsert(ctx, entities.NewVideo(videoID, nil, "")); err != nil {
			return nil, apperrors.ErrStoreFailed("create video placeholder", err)
		}
	}
	if err := s.videos.SetProcessingQueued(ctx, videoID, true); err != nil {
		return nil, apperrors.ErrStoreFailed("queue video", err)
	}

	s.logger.Info("queue.video.enqueued", zap.String("video_id", videoID))

	if priority == entities.QueuePriorityHigh {
		go func() {
			if err := s.videoR.Process(context.Background(), videoID); err != nil {
				s.logger.Warn("queue.video.immediate_dispatch_failed",
					zap.String("video_id", videoID),
					zap.Error(err),
				)
			}
		}()
	}

	return &EnqueueResult{Success: true, Message: "video queued for processing"}, nil
}

// Position returns the 1-based pending position, nil when not pending
func (s *Service) Position(ctx context.Context, qid uuid.UUID) (*int, error) {
	pos, err := s.queue.PendingPosition(ctx, qid)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("queue position", err)
	}
	if pos == 0 {
		return nil, nil
	}
	return &pos, nil
}

// ChannelStatus returns the active queue row for a channel, nil when idle
func (s *Service) ChannelStatus(ctx context.Context, channelID string) (*entities.ChannelQueueItem, error) {
	item, err := s.queue.GetActiveForChannel(ctx, channelID)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("load queue status", err)
	}
	return item, nil
}

// Item returns a queue row by id
func (s *Service) Item(ctx context.Context, qid uuid.UUID) (*entities.ChannelQueueItem, error) {
	item, err := s.queue.GetByID(ctx, qid)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("load queue item", err)
	}
	return item, nil
}
