package ai

import (
	"context"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tubechat/tubechat/pkg/config"
)

const (
	embeddingBatchSize  = 10
	interBatchPause     = 1000 * time.Millisecond
	embeddingCacheLimit = 1000
)

// EmbeddingClient vectorizes text in rate-limit-aware batches. Inputs are
// processed in batches of 10 with a pause between batches; calls inside a
// batch run in parallel. A failed input yields a nil vector and the batch
// continues — callers keep such chunks but exclude them from similarity.
type EmbeddingClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger

	mu         sync.Mutex
	cache      map[string][]float32
	cacheOrder []string // insertion order, oldest first
}

// NewEmbeddingClient creates an embedding client from config
func NewEmbeddingClient(cfg *config.OpenAIConfig, logger *zap.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		client: openai.NewClient(cfg.APIKey),
		model:  openai.EmbeddingModel(cfg.EmbeddingModel),
		logger: logger,
		cache:  make(map[string][]float32),
	}
}

// Embed vectorizes all inputs, preserving order. The returned slice always
// has len(texts) entries; entries are nil where vectorization failed.
func (e *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += embeddingBatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return vectors, ctx.Err()
			case <-time.After(interBatchPause):
			}
		}

		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				vec, err := e.embedOne(gctx, texts[i])
				if err != nil {
					// Nil vector, batch continues.
					e.logger.Warn("embeddings.input.failed",
						zap.Int("index", i),
						zap.Error(err),
					)
					return nil
				}
				vectors[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return vectors, err
		}
	}

	return vectors, nil
}

// EmbedOne vectorizes a single input, consulting the in-memory cache
func (e *EmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text)
}

func (e *EmbeddingClient) embedOne(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if vec, ok := e.cache[text]; ok {
		e.mu.Unlock()
		return vec, nil
	}
	e.mu.Unlock()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyEmbedding
	}
	vec := resp.Data[0].Embedding

	e.mu.Lock()
	if _, exists := e.cache[text]; !exists {
		e.cache[text] = vec
		e.cacheOrder = append(e.cacheOrder, text)
		// Evict oldest-inserted entries past the cap.
		for len(e.cacheOrder) > embeddingCacheLimit {
			oldest := e.cacheOrder[0]
			e.cacheOrder = e.cacheOrder[1:]
			delete(e.cache, oldest)
		}
	}
	e.mu.Unlock()

	return vec, nil
}
