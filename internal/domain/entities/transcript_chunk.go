package entities

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimension is the fixed vector size produced by the embedding provider
const EmbeddingDimension = 1536

// TranscriptChunk is the retrieval unit of a video transcript.
//
// Invariants per video: ChunkIndex is unique and contiguous from 0;
// StartTime is non-decreasing across indices; ByteOffset+ByteLength of
// chunk k equals ByteOffset of chunk k+1; if any chunk exists the video
// has ChunksProcessed=true.
type TranscriptChunk struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VideoID    string    `json:"video_id" gorm:"type:varchar(32);not null;index:idx_chunks_video_index,unique"`
	ChunkIndex int       `json:"chunk_index" gorm:"type:integer;not null;index:idx_chunks_video_index,unique"`
	StartTime  int       `json:"start_time" gorm:"type:integer;not null"`
	EndTime    int       `json:"end_time" gorm:"type:integer;not null"`
	ByteOffset int       `json:"byte_offset" gorm:"type:integer;not null"`
	ByteLength int       `json:"byte_length" gorm:"type:integer;not null"`
	Preview    string    `json:"preview" gorm:"type:text"`
	Keywords   []string  `json:"keywords" gorm:"type:jsonb;serializer:json"`
	// Embedding is nil when vectorization failed for this chunk; such chunks
	// stay eligible for keyword-only matches.
	Embedding []float32 `json:"embedding,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (TranscriptChunk) TableName() string {
	return "transcript_chunks"
}

// HasEmbedding reports whether the chunk carries a usable vector
func (c *TranscriptChunk) HasEmbedding() bool {
	return len(c.Embedding) == EmbeddingDimension
}
