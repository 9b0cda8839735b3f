package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/infrastructure/external/youtube"
	"github.com/tubechat/tubechat/internal/infrastructure/lock"
	"github.com/tubechat/tubechat/internal/usecase/errorsink"
	"github.com/tubechat/tubechat/pkg/email"
)

type grantingLocks struct{}

func (grantingLocks) Acquire(_ context.Context, resourceID string, ttl time.Duration) *lock.Lease {
	return &lock.Lease{ResourceID: resourceID, LockID: "test", ExpiresAt: time.Now().Add(ttl)}
}
func (grantingLocks) Release(context.Context, *lock.Lease) {}

type memQueueStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*entities.ChannelQueueItem
}

func (m *memQueueStore) GetByID(_ context.Context, id uuid.UUID) (*entities.ChannelQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *memQueueStore) MarkProcessing(_ context.Context, id uuid.UUID, total int, eta time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Status = entities.QueueStatusProcessing
	m.items[id].TotalVideos = total
	m.items[id].EstimatedCompletionAt = &eta
	return nil
}

func (m *memQueueStore) MarkCompleted(_ context.Context, id uuid.UUID, processed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Status = entities.QueueStatusCompleted
	m.items[id].VideosProcessed = processed
	return nil
}

func (m *memQueueStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Status = entities.QueueStatusFailed
	m.items[id].ErrorMessage = &errMsg
	return nil
}

func (m *memQueueStore) UpdateProgress(_ context.Context, id uuid.UUID, index int, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].CurrentVideoIndex = index
	m.items[id].CurrentVideoTitle = title
	return nil
}

type memChannelStore struct {
	mu       sync.Mutex
	channels map[string]*entities.Channel
}

func (m *memChannelStore) GetByID(_ context.Context, id string) (*entities.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	channel, ok := m.channels[id]
	if !ok {
		return nil, nil
	}
	copied := *channel
	return &copied, nil
}

func (m *memChannelStore) UpdateStatus(_ context.Context, id string, status entities.ChannelStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel, ok := m.channels[id]; ok {
		channel.Status = status
	}
	return nil
}

func (m *memChannelStore) UpdateMeta(_ context.Context, id, title, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel, ok := m.channels[id]; ok {
		channel.Title = title
		channel.Handle = handle
	}
	return nil
}

func (m *memChannelStore) MarkIndexed(_ context.Context, id string, videoCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel, ok := m.channels[id]; ok {
		channel.Status = entities.ChannelStatusReady
		channel.VideoCount = videoCount
	}
	return nil
}

type memVideoStore struct {
	mu     sync.Mutex
	videos map[string]*entities.Video
}

func (m *memVideoStore) GetByID(_ context.Context, id string) (*entities.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return nil, nil
	}
	copied := *video
	return &copied, nil
}

func (m *memVideoStore) Upsert(_ context.Context, video *entities.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.videos == nil {
		m.videos = make(map[string]*entities.Video)
	}
	if existing, ok := m.videos[video.ExternalID]; ok {
		existing.Title = video.Title
		return nil
	}
	copied := *video
	m.videos[video.ExternalID] = &copied
	return nil
}

func (m *memVideoStore) MarkProcessed(_ context.Context, id string, blobPath string, duration int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if video, ok := m.videos[id]; ok {
		video.TranscriptCached = true
		video.ChunksProcessed = true
		video.TranscriptBlobPath = blobPath
		video.DurationSeconds = duration
	}
	return nil
}

func (m *memVideoStore) MarkFailed(_ context.Context, id string, processingError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if video, ok := m.videos[id]; ok {
		video.TranscriptCached = false
		video.ProcessingError = &processingError
	}
	return nil
}

type fakeMetadata struct {
	videos []youtube.VideoMeta
}

func (f *fakeMetadata) ResolveHandle(_ context.Context, handle string) (*youtube.ChannelMeta, error) {
	return &youtube.ChannelMeta{ChannelID: "UC-resolved", Title: "Resolved", Handle: handle}, nil
}

func (f *fakeMetadata) GetChannel(_ context.Context, id string) (*youtube.ChannelMeta, error) {
	return &youtube.ChannelMeta{ChannelID: id, Title: "Science Hour"}, nil
}

func (f *fakeMetadata) ListChannelVideos(_ context.Context, _ string, limit int) ([]youtube.VideoMeta, error) {
	if limit < len(f.videos) {
		return f.videos[:limit], nil
	}
	return f.videos, nil
}

// scriptedProcessor returns a per-video outcome
type scriptedProcessor struct {
	outcomes map[string]error
}

func (p *scriptedProcessor) Process(_ context.Context, videoID string) error {
	return p.outcomes[videoID]
}

type capturingNotifier struct {
	mu    sync.Mutex
	sent  []email.CompletionStats
	addrs []string
}

func (n *capturingNotifier) SendChannelCompletion(_ context.Context, to string, stats email.CompletionStats) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.addrs = append(n.addrs, to)
	n.sent = append(n.sent, stats)
	return nil
}

func TestChannelPipelineStats(t *testing.T) {
	old := interVideoPause
	interVideoPause = time.Millisecond
	defer func() { interVideoPause = old }()

	// 5 videos: 2 new, 2 already cached, 1 without captions.
	metas := []youtube.VideoMeta{
		{VideoID: "new1", ChannelID: "UC1", Title: "New One"},
		{VideoID: "new2", ChannelID: "UC1", Title: "New Two"},
		{VideoID: "old1", ChannelID: "UC1", Title: "Old One"},
		{VideoID: "old2", ChannelID: "UC1", Title: "Old Two"},
		{VideoID: "mute", ChannelID: "UC1", Title: "No Captions"},
	}

	queueStore := &memQueueStore{items: make(map[uuid.UUID]*entities.ChannelQueueItem)}
	channelStore := &memChannelStore{channels: map[string]*entities.Channel{
		"UC1": {ExternalID: "UC1", Title: "Science Hour", Status: entities.ChannelStatusPending},
	}}
	videoStore := &memVideoStore{videos: map[string]*entities.Video{
		"old1": {ExternalID: "old1", TranscriptCached: true, ChunksProcessed: true},
		"old2": {ExternalID: "old2", TranscriptCached: true, ChunksProcessed: true},
	}}
	processor := &scriptedProcessor{outcomes: map[string]error{
		"new1": nil,
		"new2": nil,
		"mute": youtube.ErrNoTranscript,
	}}
	notifier := &capturingNotifier{}
	logger := zap.NewNop()
	sink := errorsink.New(&discardErrorRepo{}, logger)

	p := NewChannelPipeline(
		grantingLocks{}, queueStore, channelStore, videoStore,
		&fakeMetadata{videos: metas}, processor, notifier, sink, logger, 20, 3600,
	)

	userEmail := "viewer@example.com"
	item := entities.NewChannelQueueItem("UC1", nil, entities.QueuePriorityNormal)
	item.RequestedEmail = &userEmail
	queueStore.items[item.ID] = item

	if err := p.ProcessQueueItem(context.Background(), item.ID); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	// Completion email carries processed=4 (2 new + 2 existing),
	// existing=2, no_transcript=1, failed=0, total=5.
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 completion email, got %d", len(notifier.sent))
	}
	stats := notifier.sent[0]
	if stats.Processed != 4 || stats.Existing != 2 || stats.NoTranscript != 1 || stats.Failed != 0 || stats.Total != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Status != "completed" {
		t.Fatalf("expected completed status, got %q", stats.Status)
	}
	if notifier.addrs[0] != userEmail {
		t.Fatalf("notification sent to %q", notifier.addrs[0])
	}

	// Queue item reaches completed, channel becomes ready.
	final, _ := queueStore.GetByID(context.Background(), item.ID)
	if final.Status != entities.QueueStatusCompleted {
		t.Fatalf("queue item status = %s", final.Status)
	}
	if final.TotalVideos != 5 || final.VideosProcessed != 4 {
		t.Fatalf("queue counters wrong: %+v", final)
	}
	channel, _ := channelStore.GetByID(context.Background(), "UC1")
	if channel.Status != entities.ChannelStatusReady {
		t.Fatalf("channel status = %s", channel.Status)
	}
}

func TestChannelPipelineMissingItem(t *testing.T) {
	queueStore := &memQueueStore{items: make(map[uuid.UUID]*entities.ChannelQueueItem)}
	logger := zap.NewNop()
	sink := errorsink.New(&discardErrorRepo{}, logger)

	p := NewChannelPipeline(
		grantingLocks{}, queueStore, &memChannelStore{}, &memVideoStore{},
		&fakeMetadata{}, &scriptedProcessor{}, nil, sink, logger, 20, 3600,
	)

	if err := p.ProcessQueueItem(context.Background(), uuid.New()); err == nil {
		t.Fatalf("missing queue item must be rejected")
	}
}

func TestChannelPipelineUpstreamFailureFailsItem(t *testing.T) {
	old := interVideoPause
	interVideoPause = time.Millisecond
	defer func() { interVideoPause = old }()

	queueStore := &memQueueStore{items: make(map[uuid.UUID]*entities.ChannelQueueItem)}
	channelStore := &memChannelStore{channels: map[string]*entities.Channel{
		"UC1": {ExternalID: "UC1", Status: entities.ChannelStatusPending},
	}}
	logger := zap.NewNop()
	sink := errorsink.New(&discardErrorRepo{}, logger)

	p := NewChannelPipeline(
		grantingLocks{}, queueStore, channelStore, &memVideoStore{},
		&failingMetadata{}, &scriptedProcessor{}, nil, sink, logger, 20, 3600,
	)

	item := entities.NewChannelQueueItem("UC1", nil, entities.QueuePriorityNormal)
	queueStore.items[item.ID] = item

	if err := p.ProcessQueueItem(context.Background(), item.ID); err == nil {
		t.Fatalf("upstream failure must surface")
	}

	final, _ := queueStore.GetByID(context.Background(), item.ID)
	if final.Status != entities.QueueStatusFailed {
		t.Fatalf("queue item must be failed, got %s", final.Status)
	}
	if final.ErrorMessage == nil {
		t.Fatalf("failed item must record its error")
	}
	channel, _ := channelStore.GetByID(context.Background(), "UC1")
	if channel.Status != entities.ChannelStatusFailed {
		t.Fatalf("channel must be failed, got %s", channel.Status)
	}
}

type failingMetadata struct{}

func (failingMetadata) ResolveHandle(context.Context, string) (*youtube.ChannelMeta, error) {
	return nil, errors.New("quota exceeded")
}
func (failingMetadata) GetChannel(context.Context, string) (*youtube.ChannelMeta, error) {
	return nil, errors.New("quota exceeded")
}
func (failingMetadata) ListChannelVideos(context.Context, string, int) ([]youtube.VideoMeta, error) {
	return nil, errors.New("quota exceeded")
}

type discardErrorRepo struct{}

func (discardErrorRepo) CreateBatch(context.Context, []entities.ErrorEvent) error { return nil }
func (discardErrorRepo) CountSince(context.Context, time.Time) (int64, error)     { return 0, nil }
func (discardErrorRepo) CountByTypeSince(context.Context, time.Time) (map[string]int64, error) {
	return nil, nil
}
