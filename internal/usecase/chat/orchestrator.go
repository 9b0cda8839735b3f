package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/internal/infrastructure/cache"
	"github.com/tubechat/tubechat/internal/usecase/errorsink"
	"github.com/tubechat/tubechat/internal/usecase/retrieval"
	"github.com/tubechat/tubechat/pkg/ai"
)

const (
	retrievalK     = 10
	excerptPreview = 200
	titleLimit     = 80
)

// Frame shapes for the SSE grammar. Each frame is serialized as
// `data: <json>\n\n` by the transport layer.

// ContentFrame carries one assistant delta
type ContentFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// DoneFrame terminates a successful stream with its citations
type DoneFrame struct {
	Type      string              `json:"type"`
	Citations []entities.Citation `json:"citations"`
	Done      bool                `json:"done"`
}

// ErrorFrame terminates a failed stream
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Sink is the transport capability for one chat stream. WriteFrame errors
// signal client disconnect.
type Sink interface {
	WriteFrame(frame interface{}) error
}

// Searcher is the retrieval surface the orchestrator depends on
type Searcher interface {
	VideoSearch(ctx context.Context, videoID, query string, k int) ([]retrieval.Result, error)
	ChannelSearch(ctx context.Context, channelID, query string, k int) ([]retrieval.Result, error)
}

// LLM starts streaming chat completions
type LLM interface {
	StreamCompletion(ctx context.Context, messages []ai.ChatMessage) (ai.ChatStream, error)
}

// ContextCache memoizes retrieval context per (target, question) pair
type ContextCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// ChatStore persists sessions and turns
type ChatStore interface {
	CreateSession(ctx context.Context, session *entities.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*entities.ChatSession, error)
	AppendTurn(ctx context.Context, sessionID uuid.UUID, userMsg, assistantMsg *entities.ChatMessage) error
}

// VideoSource resolves video rows for the degenerate context
type VideoSource interface {
	GetByID(ctx context.Context, externalID string) (*entities.Video, error)
}

// ChannelSource resolves channel rows for the degenerate context
type ChannelSource interface {
	GetByID(ctx context.Context, externalID string) (*entities.Channel, error)
}

// Message is an incoming conversation turn from the client
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// Orchestrator builds retrieval context, streams LLM tokens to clients,
// extracts citations and persists conversation turns.
type Orchestrator struct {
	search   Searcher
	llm      LLM
	chats    ChatStore
	videos   VideoSource
	channels ChannelSource
	cache    ContextCache
	streams  *Registry
	sink     *errorsink.Sink
	logger   *zap.Logger
}

// NewOrchestrator wires the chat orchestrator
func NewOrchestrator(
	search Searcher,
	llm LLM,
	chats ChatStore,
	videos VideoSource,
	channels ChannelSource,
	contextCache ContextCache,
	streams *Registry,
	sink *errorsink.Sink,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		search:   search,
		llm:      llm,
		chats:    chats,
		videos:   videos,
		channels: channels,
		cache:    contextCache,
		streams:  streams,
		sink:     sink,
		logger:   logger,
	}
}

// Streams exposes the registry so the transport can cancel on disconnect
func (o *Orchestrator) Streams() *Registry {
	return o.streams
}

type chatTarget struct {
	videoID   string
	channelID string
}

// StreamVideoChat answers over a single video's transcript
func (o *Orchestrator) StreamVideoChat(ctx context.Context, streamID string, messages []Message, videoID string, sessionID *uuid.UUID, userID *string, sink Sink) {
	o.stream(ctx, streamID, messages, chatTarget{videoID: videoID}, sessionID, userID, sink)
}

// StreamChannelChat answers across an entire channel's corpus
func (o *Orchestrator) StreamChannelChat(ctx context.Context, streamID string, messages []Message, channelID string, sessionID *uuid.UUID, userID *string, sink Sink) {
	o.stream(ctx, streamID, messages, chatTarget{channelID: channelID}, sessionID, userID, sink)
}

func (o *Orchestrator) stream(ctx context.Context, streamID string, messages []Message, target chatTarget, sessionID *uuid.UUID, userID *string, sink Sink) {
	o.streams.Register(streamID)
	defer o.streams.Finish(streamID)

	lastUser := lastUserMessage(messages)
	if lastUser == "" {
		_ = sink.WriteFrame(DoneFrame{Type: "done", Citations: []entities.Citation{}, Done: true})
		return
	}

	contextBody, contextCitations, err := o.buildContext(ctx, target, lastUser)
	if err != nil {
		o.fail(streamID, sink, err, target)
		return
	}

	llmMessages := make([]ai.ChatMessage, 0, len(messages)+1)
	llmMessages = append(llmMessages, ai.ChatMessage{Role: "system", Content: systemPrompt(contextBody)})
	for _, m := range messages {
		llmMessages = append(llmMessages, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	llmStream, err := o.llm.StreamCompletion(ctx, llmMessages)
	if err != nil {
		o.fail(streamID, sink, err, target)
		return
	}
	defer llmStream.Close()

	var response strings.Builder
	for {
		delta, err := llmStream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A disconnect cancels the request context, which surfaces
			// here as a stream error. Abandon without persistence.
			if ctx.Err() != nil || !o.streams.IsActive(streamID) {
				o.logger.Info("chat.stream.cancelled", zap.String("stream_id", streamID))
				return
			}
			if response.Len() == 0 {
				o.fail(streamID, sink, err, target)
				return
			}
			// Mid-stream provider failure: finish with what we have.
			o.logger.Warn("chat.stream.llm_interrupted",
				zap.String("stream_id", streamID),
				zap.Error(err),
			)
			break
		}

		// The transport cancels the registry entry on client disconnect;
		// checking between deltas guarantees no frame follows cancellation.
		if !o.streams.IsActive(streamID) {
			o.logger.Info("chat.stream.cancelled", zap.String("stream_id", streamID))
			return
		}
		if err := sink.WriteFrame(ContentFrame{Type: "content", Content: delta, Done: false}); err != nil {
			o.streams.Cancel(streamID)
			o.logger.Info("chat.stream.disconnected", zap.String("stream_id", streamID))
			return
		}
		response.WriteString(delta)
	}

	extracted := ExtractCitations(response.String())
	citations := MergeCitations(contextCitations, extracted)
	if citations == nil {
		citations = []entities.Citation{}
	}

	o.persistTurn(ctx, target, sessionID, userID, lastUser, response.String(), citations)

	_ = sink.WriteFrame(DoneFrame{Type: "done", Citations: citations, Done: true})
}

// cachedContext is the memoized retrieval payload
type cachedContext struct {
	Body      string              `json:"body"`
	Citations []entities.Citation `json:"citations"`
}

func (o *Orchestrator) buildContext(ctx context.Context, target chatTarget, question string) (string, []entities.Citation, error) {
	targetID := target.videoID
	if targetID == "" {
		targetID = target.channelID
	}
	key := cache.Key("chat-context", targetID, question)

	if raw, ok := o.cache.Get(ctx, key); ok {
		var cc cachedContext
		if err := json.Unmarshal([]byte(raw), &cc); err == nil {
			return cc.Body, cc.Citations, nil
		}
	}

	var results []retrieval.Result
	var err error
	if target.videoID != "" {
		results, err = o.search.VideoSearch(ctx, target.videoID, question, retrievalK)
	} else {
		results, err = o.search.ChannelSearch(ctx, target.channelID, question, retrievalK)
	}
	if err != nil {
		return "", nil, err
	}

	var body string
	var citations []entities.Citation
	if len(results) == 0 {
		body = o.fallbackContext(ctx, target)
	} else {
		if target.videoID != "" {
			body = buildVideoContext(results)
		} else {
			body = buildChannelContext(results)
		}
		citations = contextCitations(results)
	}

	if raw, err := json.Marshal(cachedContext{Body: body, Citations: citations}); err == nil {
		o.cache.Set(ctx, key, string(raw), cache.DefaultTTL)
	}

	return body, citations, nil
}

// fallbackContext degrades to title+description when no chunks exist
func (o *Orchestrator) fallbackContext(ctx context.Context, target chatTarget) string {
	if target.videoID != "" {
		if video, err := o.videos.GetByID(ctx, target.videoID); err == nil && video != nil {
			return degenerateContext(video.Title, video.Description)
		}
		return degenerateContext(target.videoID, "")
	}
	if channel, err := o.channels.GetByID(ctx, target.channelID); err == nil && channel != nil {
		return degenerateContext(channel.Title, "")
	}
	return degenerateContext(target.channelID, "")
}

// contextCitations converts retrieval results into citation tuples
func contextCitations(results []retrieval.Result) []entities.Citation {
	citations := make([]entities.Citation, 0, len(results))
	for _, r := range results {
		excerpt := r.FullText
		if len(excerpt) > excerptPreview {
			excerpt = excerpt[:excerptPreview]
		}
		citations = append(citations, entities.Citation{
			VideoID:    r.Chunk.VideoID,
			VideoTitle: r.VideoTitle,
			StartTime:  r.Chunk.StartTime,
			EndTime:    r.Chunk.EndTime,
			Text:       excerpt,
		})
	}
	return citations
}

func (o *Orchestrator) persistTurn(ctx context.Context, target chatTarget, sessionID *uuid.UUID, userID *string, question, answer string, citations []entities.Citation) {
	session, err := o.resolveSession(ctx, target, sessionID, userID, question)
	if err != nil {
		o.logger.Error("chat.persist.session_failed", zap.Error(err))
		o.sink.Capture(err, "chat_persist", map[string]interface{}{
			"video_id":   target.videoID,
			"channel_id": target.channelID,
		})
		return
	}

	userMsg := &entities.ChatMessage{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      entities.ChatRoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	}
	assistantMsg := &entities.ChatMessage{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      entities.ChatRoleAssistant,
		Content:   answer,
		Citations: citations,
		CreatedAt: time.Now(),
	}

	if err := o.chats.AppendTurn(ctx, session.ID, userMsg, assistantMsg); err != nil {
		o.logger.Error("chat.persist.turn_failed", zap.Error(err))
		o.sink.Capture(err, "chat_persist", map[string]interface{}{
			"session_id": session.ID.String(),
		})
	}
}

func (o *Orchestrator) resolveSession(ctx context.Context, target chatTarget, sessionID *uuid.UUID, userID *string, question string) (*entities.ChatSession, error) {
	if sessionID != nil {
		session, err := o.chats.GetSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}

	title := question
	if len(title) > titleLimit {
		title = title[:titleLimit]
	}

	var session *entities.ChatSession
	if target.videoID != "" {
		session = entities.NewVideoChatSession(userID, target.videoID, title)
	} else {
		session = entities.NewChannelChatSession(userID, target.channelID, title)
	}
	if err := o.chats.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (o *Orchestrator) fail(streamID string, sink Sink, err error, target chatTarget) {
	o.logger.Error("chat.stream.failed",
		zap.String("stream_id", streamID),
		zap.Error(err),
	)
	o.sink.Capture(err, "chat_stream", map[string]interface{}{
		"video_id":   target.videoID,
		"channel_id": target.channelID,
	})
	_ = sink.WriteFrame(ErrorFrame{Type: "error", Error: err.Error()})
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
