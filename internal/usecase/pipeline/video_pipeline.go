package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
	"github.com/tubechat/tubechat/internal/infrastructure/lock"
	"github.com/tubechat/tubechat/internal/usecase/errorsink"
)

// TranscriptFetcher retrieves caption segments for a video
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) ([]youtube.Segment, error)
}

// BlobStore persists transcript blobs
type BlobStore interface {
	WriteTranscript(ctx context.Context, videoID, content string) (string, error)
	ReadTranscript(ctx context.Context, videoID string) (string, error)
}

// Embedder vectorizes a batch of texts; failed inputs come back nil
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LockManager arbitrates exclusive pipeline runs
type LockManager interface {
	Acquire(ctx context.Context, resourceID string, ttl time.Duration) *lock.Lease
	Release(ctx context.Context, lease *lock.Lease)
}

// VideoStore is the video persistence surface the pipelines need
type VideoStore interface {
	GetByID(ctx context.Context, externalID string) (*entities.Video, error)
	Upsert(ctx context.Context, video *entities.Video) error
	MarkProcessed(ctx context.Context, externalID string, blobPath string, durationSeconds int) error
	MarkFailed(ctx context.Context, externalID string, processingError string) error
}

// ChunkStore swaps a video's chunk set atomically
type ChunkStore interface {
	ReplaceForVideo(ctx context.Context, videoID string, chunks []entities.TranscriptChunk) error
}

// VideoPipeline ingests a single video: fetch transcript, chunk, embed,
// persist chunks atomically alongside the raw transcript blob.
type VideoPipeline struct {
	locks    LockManager
	fetcher  TranscriptFetcher
	blobs    BlobStore
	embedder Embedder
	videos   VideoStore
	chunks   ChunkStore
	sink     *errorsink.Sink
	logger   *zap.Logger
	lockTTL  time.Duration
}

// NewVideoPipeline wires the video pipeline
func NewVideoPipeline(
	locks LockManager,
	fetcher TranscriptFetcher,
	blobs BlobStore,
	embedder Embedder,
	videos VideoStore,
	chunks ChunkStore,
	sink *errorsink.Sink,
	logger *zap.Logger,
	lockTTLSeconds int,
) *VideoPipeline {
	if lockTTLSeconds <= 0 {
		lockTTLSeconds = 600
	}
	return &VideoPipeline{
		locks:    locks,
		fetcher:  fetcher,
		blobs:    blobs,
		embedder: embedder,
		videos:   videos,
		chunks:   chunks,
		sink:     sink,
		logger:   logger,
		lockTTL:  time.Duration(lockTTLSeconds) * time.Second,
	}
}

// Process runs the full pipeline for one video under the `video-<id>` lock.
// On failure the video row keeps transcript_cached=false and records the
// processing error; chunks are only ever mutated in the final atomic swap.
func (p *VideoPipeline) Process(ctx context.Context, videoID string) error {
	lease := p.locks.Acquire(ctx, "video-"+videoID, p.lockTTL)
	if lease == nil {
		return apperrors.ErrLockFailed("video-"+videoID, nil)
	}
	defer p.locks.Release(ctx, lease)

	if err := p.run(ctx, videoID); err != nil {
		p.logger.Warn("pipeline.video.failed",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
		p.sink.Capture(err, "video_pipeline", map[string]interface{}{
			"video_id": videoID,
		})
		if markErr := p.videos.MarkFailed(ctx, videoID, err.Error()); markErr != nil {
			p.logger.Error("pipeline.video.mark_failed_error",
				zap.String("video_id", videoID),
				zap.Error(markErr),
			)
		}
		return err
	}

	p.logger.Info("pipeline.video.completed", zap.String("video_id", videoID))
	return nil
}

func (p *VideoPipeline) run(ctx context.Context, videoID string) error {
	segments, err := p.fetcher.Fetch(ctx, videoID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return youtube.ErrNoTranscript
	}

	chunks := ChunkSegments(segments)
	transcript := BuildTranscript(chunks)

	blobPath, err := p.blobs.WriteTranscript(ctx, videoID, transcript)
	if err != nil {
		return apperrors.ErrBlobFailed("write transcript", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return apperrors.ErrEmbeddingUpstream(err)
	}

	rows := make([]entities.TranscriptChunk, len(chunks))
	for i, c := range chunks {
		var embedding []float32
		if i < len(vectors) {
			embedding = vectors[i]
		}
		rows[i] = entities.TranscriptChunk{
			VideoID:    videoID,
			ChunkIndex: c.Index,
			StartTime:  c.StartTime,
			EndTime:    c.EndTime,
			ByteOffset: c.ByteOffset,
			ByteLength: c.ByteLength,
			Preview:    c.Preview,
			Keywords:   c.Keywords,
			Embedding:  embedding,
		}
	}

	if err := p.chunks.ReplaceForVideo(ctx, videoID, rows); err != nil {
		return apperrors.ErrStoreFailed("replace chunks", err)
	}

	duration := segments[len(segments)-1].EndSeconds
	if err := p.videos.MarkProcessed(ctx, videoID, blobPath, duration); err != nil {
		return apperrors.ErrStoreFailed("mark video processed", err)
	}

	return nil
}
