package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
	"github.com/tubechat/tubechat/internal/usecase/errorsink"
	"github.com/tubechat/tubechat/pkg/email"
)

// perVideoEstimate drives the queue item's completion estimate
const perVideoEstimate = 30 * time.Second

// interVideoPause is a politeness delay between upstream fetches; a
// variable so tests can shrink it
var interVideoPause = 2 * time.Second

// MetadataProvider resolves channels and lists their videos
type MetadataProvider interface {
	ResolveHandle(ctx context.Context, handle string) (*youtube.ChannelMeta, error)
	GetChannel(ctx context.Context, channelID string) (*youtube.ChannelMeta, error)
	ListChannelVideos(ctx context.Context, channelID string, limit int) ([]youtube.VideoMeta, error)
}

// VideoProcessor runs the single-video pipeline
type VideoProcessor interface {
	Process(ctx context.Context, videoID string) error
}

// QueueStore is the queue persistence surface the channel pipeline needs
type QueueStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ChannelQueueItem, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, totalVideos int, eta time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID, videosProcessed int) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	UpdateProgress(ctx context.Context, id uuid.UUID, index int, title string) error
}

// ChannelStore is the channel persistence surface the pipeline needs
type ChannelStore interface {
	GetByID(ctx context.Context, externalID string) (*entities.Channel, error)
	UpdateStatus(ctx context.Context, externalID string, status entities.ChannelStatus) error
	UpdateMeta(ctx context.Context, externalID, title, handle string) error
	MarkIndexed(ctx context.Context, externalID string, videoCount int) error
}

// Notifier delivers the channel completion email
type Notifier interface {
	SendChannelCompletion(ctx context.Context, to string, stats email.CompletionStats) error
}

// runStats aggregates per-video outcomes for one channel run.
// Processed counts already-indexed plus newly processed videos.
type runStats struct {
	processed    int
	failed       int
	existing     int
	noTranscript int
	total        int
}

// ChannelPipeline enumerates a channel's videos and drives the video
// pipeline for each, aggregating outcome statistics on the queue item.
type ChannelPipeline struct {
	locks      LockManager
	queue      QueueStore
	channels   ChannelStore
	videos     VideoStore
	metadata   MetadataProvider
	processor  VideoProcessor
	notifier   Notifier
	sink       *errorsink.Sink
	logger     *zap.Logger
	videoLimit int
	lockTTL    time.Duration
}

// NewChannelPipeline wires the channel pipeline
func NewChannelPipeline(
	locks LockManager,
	queue QueueStore,
	channels ChannelStore,
	videos VideoStore,
	metadata MetadataProvider,
	processor VideoProcessor,
	notifier Notifier,
	sink *errorsink.Sink,
	logger *zap.Logger,
	videoLimit int,
	lockTTLSeconds int,
) *ChannelPipeline {
	if videoLimit <= 0 {
		videoLimit = 20
	}
	if lockTTLSeconds <= 0 {
		lockTTLSeconds = 3600
	}
	return &ChannelPipeline{
		locks:      locks,
		queue:      queue,
		channels:   channels,
		videos:     videos,
		metadata:   metadata,
		processor:  processor,
		notifier:   notifier,
		sink:       sink,
		logger:     logger,
		videoLimit: videoLimit,
		lockTTL:    time.Duration(lockTTLSeconds) * time.Second,
	}
}

// ProcessQueueItem runs a full channel ingest under the
// `channel-queue-<qid>` lock. A single video failure does not abort the
// run; unrecovered errors fail the queue item, retaining its retry count.
func (p *ChannelPipeline) ProcessQueueItem(ctx context.Context, qid uuid.UUID) error {
	lease := p.locks.Acquire(ctx, "channel-queue-"+qid.String(), p.lockTTL)
	if lease == nil {
		return apperrors.ErrLockFailed("channel-queue-"+qid.String(), nil)
	}
	defer p.locks.Release(ctx, lease)

	item, err := p.queue.GetByID(ctx, qid)
	if err != nil {
		return apperrors.ErrStoreFailed("load queue item", err)
	}
	if item == nil {
		return apperrors.ErrNotFound("queue item")
	}

	stats, runErr := p.run(ctx, item)
	if runErr != nil {
		p.logger.Error("pipeline.channel.failed",
			zap.String("queue_id", qid.String()),
			zap.String("channel_id", item.ChannelID),
			zap.Error(runErr),
		)
		p.sink.Capture(runErr, "channel_pipeline", map[string]interface{}{
			"queue_id":   qid.String(),
			"channel_id": item.ChannelID,
		})
		if err := p.queue.MarkFailed(ctx, qid, runErr.Error()); err != nil {
			p.logger.Error("pipeline.channel.mark_failed_error", zap.Error(err))
		}
		if err := p.channels.UpdateStatus(ctx, item.ChannelID, entities.ChannelStatusFailed); err != nil {
			p.logger.Error("pipeline.channel.status_error", zap.Error(err))
		}
		p.notify(ctx, item, "failed", stats, runErr.Error())
		return runErr
	}

	p.logger.Info("pipeline.channel.completed",
		zap.String("queue_id", qid.String()),
		zap.String("channel_id", item.ChannelID),
		zap.Int("processed", stats.processed),
		zap.Int("existing", stats.existing),
		zap.Int("no_transcript", stats.noTranscript),
		zap.Int("failed", stats.failed),
	)
	p.notify(ctx, item, "completed", stats, "")
	return nil
}

func (p *ChannelPipeline) run(ctx context.Context, item *entities.ChannelQueueItem) (runStats, error) {
	var stats runStats

	meta, err := p.resolveChannel(ctx, item.ChannelID)
	if err != nil {
		return stats, apperrors.ErrMetadataUpstream(err)
	}

	videos, err := p.metadata.ListChannelVideos(ctx, meta.ChannelID, p.videoLimit)
	if err != nil {
		return stats, apperrors.ErrMetadataUpstream(err)
	}
	stats.total = len(videos)

	eta := time.Now().Add(time.Duration(len(videos)) * perVideoEstimate)
	if err := p.queue.MarkProcessing(ctx, item.ID, len(videos), eta); err != nil {
		return stats, apperrors.ErrStoreFailed("mark queue processing", err)
	}
	if err := p.channels.UpdateStatus(ctx, item.ChannelID, entities.ChannelStatusProcessing); err != nil {
		return stats, apperrors.ErrStoreFailed("mark channel processing", err)
	}

	for i, meta := range videos {
		if err := p.queue.UpdateProgress(ctx, item.ID, i, meta.Title); err != nil {
			p.logger.Warn("pipeline.channel.progress_error", zap.Error(err))
		}

		existing, err := p.videos.GetByID(ctx, meta.VideoID)
		if err != nil {
			return stats, apperrors.ErrStoreFailed("load video", err)
		}
		if existing != nil && existing.IsProcessed() {
			stats.existing++
			stats.processed++
			continue
		}

		channelID := item.ChannelID
		row := entities.NewVideo(meta.VideoID, &channelID, meta.Title)
		row.Description = meta.Description
		if !meta.PublishedAt.IsZero() {
			published := meta.PublishedAt
			row.PublishedAt = &published
		}
		if err := p.videos.Upsert(ctx, row); err != nil {
			return stats, apperrors.ErrStoreFailed("upsert video", err)
		}

		if err := p.processor.Process(ctx, meta.VideoID); err != nil {
			if isTranscriptAbsence(err) {
				stats.noTranscript++
			} else {
				stats.failed++
			}
		} else {
			stats.processed++
		}

		// Politeness pause between upstream fetches.
		if i < len(videos)-1 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(interVideoPause):
			}
		}
	}

	if err := p.queue.MarkCompleted(ctx, item.ID, stats.processed); err != nil {
		return stats, apperrors.ErrStoreFailed("mark queue completed", err)
	}
	if err := p.channels.MarkIndexed(ctx, item.ChannelID, stats.total); err != nil {
		return stats, apperrors.ErrStoreFailed("mark channel indexed", err)
	}

	return stats, nil
}

// resolveChannel resolves a handle to a channel id when needed and keeps
// the channel row's title fresh.
func (p *ChannelPipeline) resolveChannel(ctx context.Context, channelID string) (*youtube.ChannelMeta, error) {
	var meta *youtube.ChannelMeta
	var err error
	if strings.HasPrefix(channelID, "@") {
		meta, err = p.metadata.ResolveHandle(ctx, channelID)
	} else {
		meta, err = p.metadata.GetChannel(ctx, channelID)
	}
	if err != nil {
		return nil, err
	}

	// Best effort; the run proceeds even when the refresh fails.
	if err := p.channels.UpdateMeta(ctx, channelID, meta.Title, meta.Handle); err != nil {
		p.logger.Debug("pipeline.channel.meta_refresh_failed", zap.Error(err))
	}
	return meta, nil
}

func (p *ChannelPipeline) notify(ctx context.Context, item *entities.ChannelQueueItem, status string, stats runStats, errMsg string) {
	if p.notifier == nil || item.RequestedEmail == nil {
		return
	}

	title := item.ChannelID
	if channel, err := p.channels.GetByID(ctx, item.ChannelID); err == nil && channel != nil && channel.Title != "" {
		title = channel.Title
	}

	err := p.notifier.SendChannelCompletion(ctx, *item.RequestedEmail, email.CompletionStats{
		ChannelTitle: title,
		Status:       status,
		Processed:    stats.processed,
		Existing:     stats.existing,
		NoTranscript: stats.noTranscript,
		Failed:       stats.failed,
		Total:        stats.total,
		ErrorMessage: errMsg,
	})
	if err != nil {
		p.logger.Warn("pipeline.channel.notify_failed",
			zap.String("queue_id", item.ID.String()),
			zap.Error(err),
		)
	}
}

// isTranscriptAbsence classifies a video failure as missing captions by
// substring, mirroring how processing_error rows are classified.
func isTranscriptAbsence(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transcript") || strings.Contains(msg, "captions")
}
