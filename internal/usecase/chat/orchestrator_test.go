package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/usecase/errorsink"
	"github.com/tubechat/tubechat/internal/usecase/retrieval"
	"github.com/tubechat/tubechat/pkg/ai"
)

type fakeSearcher struct {
	results []retrieval.Result
	err     error
}

func (f *fakeSearcher) VideoSearch(context.Context, string, string, int) ([]retrieval.Result, error) {
	return f.results, f.err
}

func (f *fakeSearcher) ChannelSearch(context.Context, string, string, int) ([]retrieval.Result, error) {
	return f.results, f.err
}

type scriptedStream struct {
	deltas []string
	pos    int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *scriptedStream) Close() error { return nil }

type fakeLLM struct {
	deltas     []string
	err        error
	lastSystem string
}

func (f *fakeLLM) StreamCompletion(_ context.Context, messages []ai.ChatMessage) (ai.ChatStream, error) {
	if len(messages) > 0 && messages[0].Role == "system" {
		f.lastSystem = messages[0].Content
	}
	if f.err != nil {
		return nil, f.err
	}
	return &scriptedStream{deltas: f.deltas}, nil
}

type fakeChatStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entities.ChatSession
	turns    int
	lastUser *entities.ChatMessage
	lastBot  *entities.ChatMessage
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{sessions: make(map[uuid.UUID]*entities.ChatSession)}
}

func (f *fakeChatStore) CreateSession(_ context.Context, session *entities.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeChatStore) GetSession(_ context.Context, id uuid.UUID) (*entities.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id], nil
}

func (f *fakeChatStore) AppendTurn(_ context.Context, _ uuid.UUID, userMsg, assistantMsg *entities.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns++
	f.lastUser = userMsg
	f.lastBot = assistantMsg
	return nil
}

type fakeVideoSource struct{ video *entities.Video }

func (f *fakeVideoSource) GetByID(context.Context, string) (*entities.Video, error) {
	return f.video, nil
}

type fakeChannelSource struct{ channel *entities.Channel }

func (f *fakeChannelSource) GetByID(context.Context, string) (*entities.Channel, error) {
	return f.channel, nil
}

type fakeContextCache struct {
	mu    sync.Mutex
	items map[string]string
}

func newFakeContextCache() *fakeContextCache {
	return &fakeContextCache{items: make(map[string]string)}
}

func (f *fakeContextCache) Get(_ context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok
}

func (f *fakeContextCache) Set(_ context.Context, key, value string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
}

// collectSink records frames; failAfter > 0 simulates a client disconnect
// by erroring from that frame on.
type collectSink struct {
	mu        sync.Mutex
	frames    []interface{}
	failAfter int
}

func (s *collectSink) WriteFrame(frame interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.frames)+1 > s.failAfter {
		return errors.New("client went away")
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *collectSink) contentText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sb strings.Builder
	for _, f := range s.frames {
		if cf, ok := f.(ContentFrame); ok {
			sb.WriteString(cf.Content)
		}
	}
	return sb.String()
}

func (s *collectSink) last() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

type fixture struct {
	orchestrator *Orchestrator
	llm          *fakeLLM
	chats        *fakeChatStore
	searcher     *fakeSearcher
}

func newFixture(deltas []string, results []retrieval.Result) *fixture {
	llm := &fakeLLM{deltas: deltas}
	chats := newFakeChatStore()
	searcher := &fakeSearcher{results: results}
	logger := zap.NewNop()
	sink := errorsink.New(&discardErrorRepo{}, logger)

	o := NewOrchestrator(
		searcher,
		llm,
		chats,
		&fakeVideoSource{video: &entities.Video{ExternalID: "vid1", Title: "Rocket Science", Description: "all about rockets"}},
		&fakeChannelSource{channel: &entities.Channel{ExternalID: "ch1", Title: "Space Channel"}},
		newFakeContextCache(),
		NewRegistry(),
		sink,
		logger,
	)
	return &fixture{orchestrator: o, llm: llm, chats: chats, searcher: searcher}
}

type discardErrorRepo struct{}

func (discardErrorRepo) CreateBatch(context.Context, []entities.ErrorEvent) error { return nil }
func (discardErrorRepo) CountSince(context.Context, time.Time) (int64, error)     { return 0, nil }
func (discardErrorRepo) CountByTypeSince(context.Context, time.Time) (map[string]int64, error) {
	return nil, nil
}

func sampleResults() []retrieval.Result {
	return []retrieval.Result{
		{
			Chunk:      entities.TranscriptChunk{VideoID: "vid1", ChunkIndex: 0, StartTime: 30, EndTime: 90},
			Score:      0.9,
			FullText:   "[00:30] engines ignite.",
			VideoTitle: "Rocket Science",
		},
	}
}

func TestStreamVideoChatHappyPath(t *testing.T) {
	fx := newFixture([]string{"Liftoff ", "happens at ", "[00:45]."}, sampleResults())
	sink := &collectSink{}

	fx.orchestrator.StreamVideoChat(context.Background(), "s1", []Message{
		{Role: "user", Content: "when is liftoff?"},
	}, "vid1", nil, nil, sink)

	if got := sink.contentText(); got != "Liftoff happens at [00:45]." {
		t.Fatalf("unexpected streamed content %q", got)
	}

	done, ok := sink.last().(DoneFrame)
	if !ok {
		t.Fatalf("final frame must be a done frame, got %T", sink.last())
	}
	if !done.Done || done.Type != "done" {
		t.Fatalf("malformed done frame %+v", done)
	}

	// Context citation plus the extracted [00:45].
	if len(done.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d: %+v", len(done.Citations), done.Citations)
	}
	if done.Citations[0].VideoID != "vid1" || done.Citations[0].StartTime != 30 {
		t.Fatalf("context citation malformed: %+v", done.Citations[0])
	}
	if done.Citations[1].Seconds != 45 {
		t.Fatalf("extracted citation malformed: %+v", done.Citations[1])
	}

	// The turn is persisted: user + assistant, counters bumped.
	if fx.chats.turns != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", fx.chats.turns)
	}
	if fx.chats.lastBot.Content != "Liftoff happens at [00:45]." {
		t.Fatalf("assistant message mismatch: %q", fx.chats.lastBot.Content)
	}
	if len(fx.chats.lastBot.Citations) != 2 {
		t.Fatalf("assistant citations not persisted")
	}
}

func TestStreamWithoutUserMessageEmitsEmptyDone(t *testing.T) {
	fx := newFixture([]string{"ignored"}, nil)
	sink := &collectSink{}

	fx.orchestrator.StreamVideoChat(context.Background(), "s2", []Message{
		{Role: "assistant", Content: "previous answer"},
	}, "vid1", nil, nil, sink)

	done, ok := sink.last().(DoneFrame)
	if !ok || len(done.Citations) != 0 {
		t.Fatalf("expected empty done frame, got %+v", sink.last())
	}
	if fx.chats.turns != 0 {
		t.Fatalf("nothing must be persisted without a user message")
	}
}

func TestStreamDegenerateContextWithoutChunks(t *testing.T) {
	fx := newFixture([]string{"No transcript yet."}, nil)
	sink := &collectSink{}

	fx.orchestrator.StreamVideoChat(context.Background(), "s3", []Message{
		{Role: "user", Content: "what is this video about?"},
	}, "vid1", nil, nil, sink)

	if !strings.Contains(fx.llm.lastSystem, "Rocket Science") {
		t.Fatalf("degenerate context must carry the video title, got %q", fx.llm.lastSystem)
	}
}

func TestStreamDisconnectStopsWithoutPersistence(t *testing.T) {
	fx := newFixture([]string{"a", "b", "c", "d", "e"}, sampleResults())
	sink := &collectSink{failAfter: 2}

	fx.orchestrator.StreamVideoChat(context.Background(), "s4", []Message{
		{Role: "user", Content: "tell me everything"},
	}, "vid1", nil, nil, sink)

	if fx.chats.turns != 0 {
		t.Fatalf("no turn may be persisted after a disconnect")
	}
	if _, ok := sink.last().(DoneFrame); ok {
		t.Fatalf("no done frame may follow a disconnect")
	}
}

// cancellingSink flips the registry after delivering its first frame, the
// way the transport layer reacts to a dropped connection.
type cancellingSink struct {
	collectSink
	registry *Registry
	streamID string
	once     sync.Once
}

func (s *cancellingSink) WriteFrame(frame interface{}) error {
	err := s.collectSink.WriteFrame(frame)
	s.once.Do(func() { s.registry.Cancel(s.streamID) })
	return err
}

func TestStreamCancelledViaRegistry(t *testing.T) {
	fx := newFixture([]string{"a", "b", "c"}, sampleResults())
	sink := &cancellingSink{registry: fx.orchestrator.Streams(), streamID: "s5"}

	fx.orchestrator.StreamVideoChat(context.Background(), "s5", []Message{
		{Role: "user", Content: "race me"},
	}, "vid1", nil, nil, sink)

	// The flag clears after the first delta; no further content frames,
	// no done frame, no persistence.
	if got := sink.contentText(); got != "a" {
		t.Fatalf("expected streaming to stop after cancellation, streamed %q", got)
	}
	if fx.chats.turns != 0 {
		t.Fatalf("cancelled stream must not persist")
	}
	if _, ok := sink.last().(DoneFrame); ok {
		t.Fatalf("cancelled stream must not emit a done frame")
	}
}

func TestStreamLLMFailureEmitsErrorFrame(t *testing.T) {
	fx := newFixture(nil, sampleResults())
	fx.llm.err = errors.New("provider down")
	sink := &collectSink{}

	fx.orchestrator.StreamVideoChat(context.Background(), "s6", []Message{
		{Role: "user", Content: "hello"},
	}, "vid1", nil, nil, sink)

	errFrame, ok := sink.last().(ErrorFrame)
	if !ok {
		t.Fatalf("expected error frame, got %T", sink.last())
	}
	if errFrame.Type != "error" || errFrame.Error == "" {
		t.Fatalf("malformed error frame %+v", errFrame)
	}
}

func TestStreamReusesExistingSession(t *testing.T) {
	fx := newFixture([]string{"answer"}, sampleResults())
	sink := &collectSink{}

	session := entities.NewVideoChatSession(nil, "vid1", "existing")
	_ = fx.chats.CreateSession(context.Background(), session)

	fx.orchestrator.StreamVideoChat(context.Background(), "s7", []Message{
		{Role: "user", Content: "follow-up"},
	}, "vid1", &session.ID, nil, sink)

	if fx.chats.lastUser.SessionID != session.ID {
		t.Fatalf("turn must attach to the existing session")
	}
	if len(fx.chats.sessions) != 1 {
		t.Fatalf("no new session may be created, have %d", len(fx.chats.sessions))
	}
}
