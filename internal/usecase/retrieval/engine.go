package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/tubechat/tubechat/errors"
	"github.com/tubechat/tubechat/internal/domain/entities"
	"github.com/tubechat/tubechat/pkg/keywords"
)

const (
	// keywordTopSetBoost is added when a keyword-matched chunk already sits
	// in the semantic top set
	keywordTopSetBoost = 0.3
	// keywordBaseScore replaces the semantic score for keyword-only matches
	keywordBaseScore = 0.5
	// previewHitBoost is the per-hit boost for query keywords found in the
	// chunk's text preview (video search only)
	previewHitBoost = 0.1

	// diversityGroups caps how many videos share the per-video quota
	diversityGroups = 3
)

// ChunkSource loads chunk corpora
type ChunkSource interface {
	ListByVideo(ctx context.Context, videoID string) ([]entities.TranscriptChunk, error)
	ListByChannel(ctx context.Context, channelID string) ([]entities.TranscriptChunk, error)
}

// VideoSource resolves video metadata for result annotation
type VideoSource interface {
	GetByID(ctx context.Context, externalID string) (*entities.Video, error)
}

// QueryEmbedder vectorizes a single query string
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// BlobReader loads transcript blobs for text hydration
type BlobReader interface {
	ReadTranscript(ctx context.Context, videoID string) (string, error)
}

// Result is one ranked chunk with hydrated text
type Result struct {
	Chunk      entities.TranscriptChunk
	Score      float64
	FullText   string
	VideoTitle string
}

// Engine implements hybrid retrieval: dense cosine similarity merged with
// symbolic keyword matching via additive boosts, plus cross-video
// diversification for channel search.
type Engine struct {
	chunks   ChunkSource
	videos   VideoSource
	embedder QueryEmbedder
	blobs    BlobReader
	logger   *zap.Logger
}

// NewEngine wires the retrieval engine
func NewEngine(
	chunks ChunkSource,
	videos VideoSource,
	embedder QueryEmbedder,
	blobs BlobReader,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		chunks:   chunks,
		videos:   videos,
		embedder: embedder,
		blobs:    blobs,
		logger:   logger,
	}
}

// VideoSearch ranks a single video's chunks against the query
func (e *Engine) VideoSearch(ctx context.Context, videoID, query string, k int) ([]Result, error) {
	chunks, err := e.chunks.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("load video chunks", err)
	}

	results := e.rank(ctx, chunks, query, k, true)
	results = topK(results, k)
	e.hydrate(ctx, results)
	e.attachTitles(ctx, results)
	return results, nil
}

// ChannelSearch ranks chunks across every video of a channel, with
// per-video caps so one top-heavy video cannot crowd out the rest
func (e *Engine) ChannelSearch(ctx context.Context, channelID, query string, k int) ([]Result, error) {
	chunks, err := e.chunks.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, apperrors.ErrStoreFailed("load channel chunks", err)
	}

	results := e.rank(ctx, chunks, query, k, false)
	results = diversify(results, k)
	results = topK(results, k)
	e.hydrate(ctx, results)
	e.attachTitles(ctx, results)
	return results, nil
}

// rank scores every chunk. The whole corpus is loaded in memory; chunker
// output bounds per-video corpora, and channel corpora stay small at the
// current per-channel video cap.
func (e *Engine) rank(ctx context.Context, chunks []entities.TranscriptChunk, query string, k int, previewBoost bool) []Result {
	if len(chunks) == 0 {
		return nil
	}

	queryVec, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		// Degrade to keyword-only matching.
		e.logger.Warn("retrieval.query_embed_failed", zap.Error(err))
		queryVec = nil
	}
	queryKeywords := keywords.ExtractQuery(query)

	semantic := make([]float64, len(chunks))
	for i := range chunks {
		if queryVec != nil && chunks[i].HasEmbedding() {
			semantic[i] = cosine(queryVec, chunks[i].Embedding)
		}
	}

	topSet := semanticTopSet(semantic, k)

	results := make([]Result, 0, len(chunks))
	for i := range chunks {
		score := semantic[i]

		if keywords.Matches(queryKeywords, chunks[i].Keywords) > 0 {
			if topSet[i] {
				score += keywordTopSetBoost
			} else {
				score = keywordBaseScore
			}
		}

		if previewBoost {
			score += previewHitBoost * float64(previewHits(queryKeywords, chunks[i].Preview))
		}

		if score <= 0 {
			continue
		}
		results = append(results, Result{Chunk: chunks[i], Score: score})
	}

	sortResults(results)
	return results
}

// sortResults orders by score descending; ties break on earlier chunk
// index, then lower video id
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.ChunkIndex != results[j].Chunk.ChunkIndex {
			return results[i].Chunk.ChunkIndex < results[j].Chunk.ChunkIndex
		}
		return results[i].Chunk.VideoID < results[j].Chunk.VideoID
	})
}

// semanticTopSet marks the indices of the k highest semantic scores
func semanticTopSet(semantic []float64, k int) map[int]bool {
	if k <= 0 {
		k = 10
	}
	idx := make([]int, len(semantic))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return semantic[idx[a]] > semantic[idx[b]]
	})

	top := make(map[int]bool, k)
	for i := 0; i < len(idx) && i < k; i++ {
		if semantic[idx[i]] > 0 {
			top[idx[i]] = true
		}
	}
	return top
}

// diversify caps per-video chunks at ceil(k / min(distinct_videos, 3))
// before the final top-k cut
func diversify(results []Result, k int) []Result {
	if len(results) == 0 || k <= 0 {
		return results
	}

	distinct := make(map[string]struct{})
	for _, r := range results {
		distinct[r.Chunk.VideoID] = struct{}{}
	}
	groups := len(distinct)
	if groups > diversityGroups {
		groups = diversityGroups
	}
	if groups == 0 {
		return results
	}
	perVideo := (k + groups - 1) / groups

	taken := make(map[string]int)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if taken[r.Chunk.VideoID] >= perVideo {
			continue
		}
		taken[r.Chunk.VideoID]++
		out = append(out, r)
	}
	return out
}

func topK(results []Result, k int) []Result {
	if k > 0 && len(results) > k {
		return results[:k]
	}
	return results
}

// hydrate materializes each result's full text from the transcript blob,
// selecting the lines whose embedded timestamps fall inside the chunk's
// time range
func (e *Engine) hydrate(ctx context.Context, results []Result) {
	blobCache := make(map[string]string)

	for i := range results {
		videoID := results[i].Chunk.VideoID
		blob, ok := blobCache[videoID]
		if !ok {
			var err error
			blob, err = e.blobs.ReadTranscript(ctx, videoID)
			if err != nil {
				e.logger.Warn("retrieval.hydrate_failed",
					zap.String("video_id", videoID),
					zap.Error(err),
				)
				blobCache[videoID] = ""
				results[i].FullText = results[i].Chunk.Preview
				continue
			}
			blobCache[videoID] = blob
		}
		if blob == "" {
			results[i].FullText = results[i].Chunk.Preview
			continue
		}
		results[i].FullText = linesInRange(blob, results[i].Chunk.StartTime, results[i].Chunk.EndTime)
		if results[i].FullText == "" {
			results[i].FullText = results[i].Chunk.Preview
		}
	}
}

func (e *Engine) attachTitles(ctx context.Context, results []Result) {
	titles := make(map[string]string)
	for i := range results {
		videoID := results[i].Chunk.VideoID
		title, ok := titles[videoID]
		if !ok {
			if video, err := e.videos.GetByID(ctx, videoID); err == nil && video != nil {
				title = video.Title
			}
			titles[videoID] = title
		}
		results[i].VideoTitle = title
	}
}

// linesInRange collects blob lines whose [MM:SS] timestamp lies inside
// [start, end]
func linesInRange(blob string, start, end int) string {
	var sb strings.Builder
	for _, line := range strings.Split(blob, "\n") {
		ts, ok := parseLineTimestamp(line)
		if !ok {
			continue
		}
		if ts >= start && ts <= end {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// parseLineTimestamp extracts the leading [MM:SS] timestamp in seconds
func parseLineTimestamp(line string) (int, bool) {
	if len(line) < 3 || line[0] != '[' {
		return 0, false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return 0, false
	}
	parts := strings.Split(line[1:end], ":")
	if len(parts) != 2 {
		return 0, false
	}
	minutes, ok1 := atoi(parts[0])
	seconds, ok2 := atoi(parts[1])
	if !ok1 || !ok2 {
		return 0, false
	}
	return minutes*60 + seconds, true
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// previewHits counts query keywords present in the chunk preview
func previewHits(queryKeywords []string, preview string) int {
	if preview == "" {
		return 0
	}
	lower := strings.ToLower(preview)
	hits := 0
	for _, kw := range queryKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

// cosine computes cosine similarity between two vectors
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
