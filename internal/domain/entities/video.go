package entities

import (
	"time"
)

// Video is a single YouTube video. Identity is the provider video id.
// Rows may exist with TranscriptCached=false as placeholders before the
// pipeline completes.
type Video struct {
	ExternalID         string     `json:"external_id" gorm:"type:varchar(32);primary_key"`
	ChannelID          *string    `json:"channel_id,omitempty" gorm:"type:varchar(64);index"` // nil for ad-hoc videos
	Title              string     `json:"title" gorm:"type:varchar(512)"`
	Description        string     `json:"description" gorm:"type:text"`
	DurationSeconds    int        `json:"duration_seconds" gorm:"type:integer;default:0"`
	PublishedAt        *time.Time `json:"published_at,omitempty" gorm:"type:timestamp;index"`
	TranscriptCached   bool       `json:"transcript_cached" gorm:"default:false;index"`
	ChunksProcessed    bool       `json:"chunks_processed" gorm:"default:false"`
	ProcessingQueued   bool       `json:"processing_queued" gorm:"default:false;index"`
	ProcessingError    *string    `json:"processing_error,omitempty" gorm:"type:text"`
	TranscriptBlobPath string     `json:"transcript_blob_path,omitempty" gorm:"type:varchar(255)"`
	CreatedAt          time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Video) TableName() string {
	return "videos"
}

// NewVideo creates a placeholder video row ahead of pipeline processing
func NewVideo(externalID string, channelID *string, title string) *Video {
	return &Video{
		ExternalID: externalID,
		ChannelID:  channelID,
		Title:      title,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// IsProcessed reports whether the pipeline has fully indexed this video
func (v *Video) IsProcessed() bool {
	return v.TranscriptCached && v.ChunksProcessed
}
