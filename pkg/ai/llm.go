package ai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tubechat/tubechat/pkg/config"
)

// ErrEmptyEmbedding is returned when the provider responds without vectors
var ErrEmptyEmbedding = errors.New("embedding response contained no data")

const (
	chatTemperature = 0.3
	chatMaxTokens   = 1000
)

// ChatMessage is a provider-neutral conversation turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatStream yields assistant content deltas. Recv returns io.EOF when the
// completion finishes.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// LLMClient wraps the chat-completion provider
type LLMClient struct {
	client *openai.Client
	model  string
}

// NewLLMClient creates an LLM client from config
func NewLLMClient(cfg *config.OpenAIConfig) *LLMClient {
	return &LLMClient{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.ChatModel,
	}
}

// StreamCompletion starts a streaming chat completion
func (c *LLMClient) StreamCompletion(ctx context.Context, messages []ChatMessage) (ChatStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &openAIStream{stream: stream}, nil
}

// Complete runs a non-streaming completion (used for summaries)
func (c *LLMClient) Complete(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = chatMaxTokens
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: chatTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err // io.EOF at stream end
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return delta, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

var _ ChatStream = (*openAIStream)(nil)
