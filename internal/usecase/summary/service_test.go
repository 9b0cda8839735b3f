package summary

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/pkg/ai"
)

type fakeVideos struct{ video *entities.Video }

func (f *fakeVideos) GetByID(context.Context, string) (*entities.Video, error) {
	return f.video, nil
}

type fakeBlobs struct{ transcript string }

func (f *fakeBlobs) ReadTranscript(context.Context, string) (string, error) {
	return f.transcript, nil
}

type countingLLM struct {
	mu       sync.Mutex
	calls    int
	lastUser string
}

func (c *countingLLM) Complete(_ context.Context, messages []ai.ChatMessage, _ int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	for _, m := range messages {
		if m.Role == "user" {
			c.lastUser = m.Content
		}
	}
	return "a concise summary", nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string]string
}

func (m *memCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key, value string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
}

func processedVideo() *entities.Video {
	return &entities.Video{ExternalID: "vid1", Title: "Deep Dive", TranscriptCached: true, ChunksProcessed: true}
}

func TestGenerateTruncatesLongTranscripts(t *testing.T) {
	llm := &countingLLM{}
	s := NewService(
		&fakeVideos{video: processedVideo()},
		&fakeBlobs{transcript: strings.Repeat("x", transcriptCharLimit+500)},
		llm, &memCache{}, zap.NewNop(),
	)

	result, err := s.Generate(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !result.Truncated {
		t.Fatalf("long transcript must be reported truncated")
	}
	// The prompt carries at most the cap plus the title prefix.
	if len(llm.lastUser) > transcriptCharLimit+100 {
		t.Fatalf("prompt exceeds the transcript cap: %d bytes", len(llm.lastUser))
	}
}

func TestGenerateServesFromCache(t *testing.T) {
	llm := &countingLLM{}
	s := NewService(
		&fakeVideos{video: processedVideo()},
		&fakeBlobs{transcript: "short transcript"},
		llm, &memCache{}, zap.NewNop(),
	)
	ctx := context.Background()

	if _, err := s.Generate(ctx, "vid1"); err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	if _, err := s.Generate(ctx, "vid1"); err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("second call must be served from cache, llm called %d times", llm.calls)
	}
}

func TestGenerateRejectsUnprocessedVideo(t *testing.T) {
	s := NewService(
		&fakeVideos{video: &entities.Video{ExternalID: "vid1"}},
		&fakeBlobs{}, &countingLLM{}, &memCache{}, zap.NewNop(),
	)
	if _, err := s.Generate(context.Background(), "vid1"); err == nil {
		t.Fatalf("unprocessed video must be rejected")
	}
}

func TestGenerateMissingVideo(t *testing.T) {
	s := NewService(&fakeVideos{}, &fakeBlobs{}, &countingLLM{}, &memCache{}, zap.NewNop())
	if _, err := s.Generate(context.Background(), "absent"); err == nil {
		t.Fatalf("missing video must be rejected")
	}
}
