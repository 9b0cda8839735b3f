package summary

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/infrastructure/cache"
	"github.com/tubechat/tubechat/pkg/ai"
)

// transcriptCharLimit truncates the transcript fed to the model. The
// truncation is a heuristic and is documented at the API surface.
const transcriptCharLimit = 8000

// VideoSource resolves video rows
type VideoSource interface {
	GetByID(ctx context.Context, externalID string) (*entities.Video, error)
}

// BlobReader loads transcript blobs
type BlobReader interface {
	ReadTranscript(ctx context.Context, videoID string) (string, error)
}

// Completer runs a non-streaming LLM completion
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage, maxTokens int) (string, error)
}

// ValueCache memoizes generated summaries
type ValueCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Service generates cached per-video summaries from the transcript blob
type Service struct {
	videos VideoSource
	blobs  BlobReader
	llm    Completer
	cache  ValueCache
	logger *zap.Logger
}

// NewService wires the summary service
func NewService(videos VideoSource, blobs BlobReader, llm Completer, valueCache ValueCache, logger *zap.Logger) *Service {
	return &Service{
		videos: videos,
		blobs:  blobs,
		llm:    llm,
		cache:  valueCache,
		logger: logger,
	}
}

// Result is a generated summary plus whether the source transcript was cut
// at the character limit before summarization.
type Result struct {
	Summary   string `json:"summary"`
	Truncated bool   `json:"truncated"`
}

// Generate returns the summary for a processed video, serving from cache
// when fresh (60 minute TTL).
func (s *Service) Generate(ctx context.Context, videoID string) (*Result, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("load video", err)
	}
	if video == nil {
		return nil, apperrors.ErrNotFound("video")
	}
	if !video.TranscriptCached {
		return nil, apperrors.ErrInvalidArgument("video transcript is not processed yet")
	}

	key := cache.Key("video-summary", videoID)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var result Result
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return &result, nil
		}
	}

	transcript, err := s.blobs.ReadTranscript(ctx, videoID)
	if err != nil {
		return nil, apperrors.ErrBlobFailed("read transcript", err)
	}
	runes := []rune(transcript)
	truncated := len(runes) > transcriptCharLimit
	if truncated {
		transcript = string(runes[:transcriptCharLimit])
	}

	messages := []ai.ChatMessage{
		{Role: "system", Content: "Summarize the following video transcript in a few short paragraphs. Mention the main topics in order and keep the viewer's perspective."},
		{Role: "user", Content: "Video title: " + video.Title + "\n\n" + transcript},
	}

	text, err := s.llm.Complete(ctx, messages, 500)
	if err != nil {
		return nil, apperrors.ErrLLMUpstream(err)
	}

	result := &Result{Summary: text, Truncated: truncated}
	if raw, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, string(raw), cache.SummaryTTL)
	}
	s.logger.Info("summary.generated", zap.String("video_id", videoID))
	return result, nil
}
