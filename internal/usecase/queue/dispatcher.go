package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/domain/repositories"
	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
	"github.com/tubechat/tubechat/internal/usecase/ratelimit"
)

const (
	channelTickInterval = 5 * time.Second
	videoTickInterval   = 30 * time.Second
	retryTickInterval   = 5 * time.Minute
	gcTickInterval      = 24 * time.Hour
	refreshTickInterval = 6 * time.Hour

	dispatchBatchSize = 5
	queueRetention    = 7 * 24 * time.Hour
)

// RefreshMetadata lists channel videos published after a point in time
type RefreshMetadata interface {
	ListVideosPublishedAfter(ctx context.Context, channelID string, after time.Time, limit int) ([]youtube.VideoMeta, error)
}

// Dispatcher owns the background ticks that drain the queue. Ticks are
// idempotent and safe to run on multiple instances: the pipelines acquire
// locks, so a row observed by two ticks executes at most once.
type Dispatcher struct {
	queue    repositories.QueueRepository
	channels repositories.ChannelRepository
	videos   repositories.VideoRepository
	channelR ChannelRunner
	videoR   VideoRunner
	metadata RefreshMetadata
	limiter  *ratelimit.Service
	logger   *zap.Logger

	mu       sync.Mutex
	lastRuns map[string]time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewDispatcher wires the dispatcher
func NewDispatcher(
	queue repositories.QueueRepository,
	channels repositories.ChannelRepository,
	videos repositories.VideoRepository,
	channelRunner ChannelRunner,
	videoRunner VideoRunner,
	metadata RefreshMetadata,
	limiter *ratelimit.Service,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		channels: channels,
		videos:   videos,
		channelR: channelRunner,
		videoR:   videoRunner,
		metadata: metadata,
		limiter:  limiter,
		logger:   logger,
		lastRuns: make(map[string]time.Time),
		stop:     make(chan struct{}),
	}
}

// Start launches all tick loops
func (d *Dispatcher) Start() {
	d.loop("channel_dispatch", channelTickInterval, d.dispatchChannels)
	d.loop("video_dispatch", videoTickInterval, d.dispatchVideos)
	d.loop("retry_failed", retryTickInterval, d.retryFailed)
	d.loop("queue_gc", gcTickInterval, d.collectGarbage)
	d.loop("channel_refresh", refreshTickInterval, d.refreshChannels)
	d.logger.Info("queue.dispatcher.started")
}

// Stop halts all tick loops and waits for them to exit
func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
	d.logger.Info("queue.dispatcher.stopped")
}

// LastRuns reports the most recent completion time of each tick loop
func (d *Dispatcher) LastRuns() map[string]time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]time.Time, len(d.lastRuns))
	for k, v := range d.lastRuns {
		out[k] = v
	}
	return out
}

func (d *Dispatcher) loop(name string, interval time.Duration, tick func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval+30*time.Second)
				tick(ctx)
				cancel()

				d.mu.Lock()
				d.lastRuns[name] = time.Now()
				d.mu.Unlock()
			}
		}
	}()
}

// dispatchChannels drains up to 5 pending channel queue rows in parallel.
// Dispatch is fire-and-forget per row: runs outlive the tick and carry
// their own context, and lock acquisition at the pipeline guarantees
// at-most-one concurrent execution per queue item.
func (d *Dispatcher) dispatchChannels(ctx context.Context) {
	items, err := d.queue.ListPending(ctx, dispatchBatchSize)
	if err != nil {
		d.logger.Warn("queue.tick.channel.list_failed", zap.Error(err))
		return
	}

	for _, item := range items {
		qid := item.ID
		go func() {
			if err := d.channelR.ProcessQueueItem(context.Background(), qid); err != nil {
				d.logger.Warn("queue.tick.channel.dispatch_failed",
					zap.String("queue_id", qid.String()),
					zap.Error(err),
				)
			}
		}()
	}
}

// dispatchVideos drains up to 5 queued, unprocessed videos oldest first
func (d *Dispatcher) dispatchVideos(ctx context.Context) {
	videos, err := d.videos.ListQueuedUnprocessed(ctx, dispatchBatchSize)
	if err != nil {
		d.logger.Warn("queue.tick.video.list_failed", zap.Error(err))
		return
	}

	for _, video := range videos {
		videoID := video.ExternalID
		go func() {
			if err := d.videoR.Process(context.Background(), videoID); err != nil {
				d.logger.Warn("queue.tick.video.dispatch_failed",
					zap.String("video_id", videoID),
					zap.Error(err),
				)
			}
		}()
	}
}

// retryFailed resets retryable failed queue rows back to pending
func (d *Dispatcher) retryFailed(ctx context.Context) {
	reset, err := d.queue.ResetFailed(ctx, dispatchBatchSize)
	if err != nil {
		d.logger.Warn("queue.tick.retry_failed", zap.Error(err))
		return
	}
	if reset > 0 {
		d.logger.Info("queue.tick.retry", zap.Int("reset", reset))
	}
}

// collectGarbage deletes completed queue rows past retention and prunes
// expired rate events
func (d *Dispatcher) collectGarbage(ctx context.Context) {
	removed, err := d.queue.DeleteCompletedBefore(ctx, time.Now().Add(-queueRetention))
	if err != nil {
		d.logger.Warn("queue.tick.gc_failed", zap.Error(err))
	} else if removed > 0 {
		d.logger.Info("queue.tick.gc", zap.Int64("removed", removed))
	}

	if d.limiter != nil {
		pruned, err := d.limiter.Prune(ctx)
		if err != nil {
			d.logger.Warn("queue.tick.rate_prune_failed", zap.Error(err))
		} else if pruned > 0 {
			d.logger.Info("queue.tick.rate_prune", zap.Int64("pruned", pruned))
		}
	}
}

// refreshChannels enqueues newly published videos for ready channels
func (d *Dispatcher) refreshChannels(ctx context.Context) {
	channels, err := d.channels.ListByStatus(ctx, entities.ChannelStatusReady)
	if err != nil {
		d.logger.Warn("queue.tick.refresh.list_failed", zap.Error(err))
		return
	}

	for _, channel := range channels {
		newest, err := d.videos.NewestPublishedAt(ctx, channel.ExternalID)
		if err != nil {
			d.logger.Warn("queue.tick.refresh.newest_failed",
				zap.String("channel_id", channel.ExternalID),
				zap.Error(err),
			)
			continue
		}
		if newest == nil {
			continue
		}

		fresh, err := d.metadata.ListVideosPublishedAfter(ctx, channel.ExternalID, *newest, dispatchBatchSize)
		if err != nil {
			d.logger.Warn("queue.tick.refresh.upstream_failed",
				zap.String("channel_id", channel.ExternalID),
				zap.Error(err),
			)
			continue
		}

		for _, meta := range fresh {
			channelID := channel.ExternalID
			row := entities.NewVideo(meta.VideoID, &channelID, meta.Title)
			row.Description = meta.Description
			if !meta.PublishedAt.IsZero() {
				published := meta.PublishedAt
				row.PublishedAt = &published
			}
			if err := d.videos.Upsert(ctx, row); err != nil {
				d.logger.Warn("queue.tick.refresh.upsert_failed", zap.Error(err))
				continue
			}
			if err := d.videos.SetProcessingQueued(ctx, meta.VideoID, true); err != nil {
				d.logger.Warn("queue.tick.refresh.queue_failed", zap.Error(err))
			}
		}

		if len(fresh) > 0 {
			d.logger.Info("queue.tick.refresh",
				zap.String("channel_id", channel.ExternalID),
				zap.Int("new_videos", len(fresh)),
			)
		}
	}
}
