package entities

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the lifecycle of a channel queue item
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueuePriority orders dispatch of queue items
type QueuePriority string

const (
	QueuePriorityHigh   QueuePriority = "high"
	QueuePriorityNormal QueuePriority = "normal"
	QueuePriorityLow    QueuePriority = "low"
)

// MaxQueueRetries caps automatic resets of failed queue items
const MaxQueueRetries = 3

// ChannelQueueItem is one unit of channel ingest work.
// Created pending; transitions pending→processing→(completed|failed).
// Completed rows are garbage-collected after 7 days.
type ChannelQueueItem struct {
	ID                    uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ChannelID             string        `json:"channel_id" gorm:"type:varchar(64);not null;index"`
	RequestedBy           *string       `json:"requested_by,omitempty" gorm:"type:varchar(64);index"` // nil for system refreshes
	RequestedEmail        *string       `json:"requested_email,omitempty" gorm:"type:varchar(255)"`   // completion notification target
	Status                QueueStatus   `json:"status" gorm:"type:varchar(20);not null;index;default:'pending'"`
	Priority              QueuePriority `json:"priority" gorm:"type:varchar(10);not null;default:'normal'"`
	RetryCount            int           `json:"retry_count" gorm:"type:integer;default:0"`
	TotalVideos           int           `json:"total_videos" gorm:"type:integer;default:0"`
	VideosProcessed       int           `json:"videos_processed" gorm:"type:integer;default:0"`
	CurrentVideoIndex     int           `json:"current_video_index" gorm:"type:integer;default:0"`
	CurrentVideoTitle     string        `json:"current_video_title" gorm:"type:varchar(512)"`
	StartedAt             *time.Time    `json:"started_at,omitempty" gorm:"type:timestamp"`
	CompletedAt           *time.Time    `json:"completed_at,omitempty" gorm:"type:timestamp"`
	ErrorMessage          *string       `json:"error_message,omitempty" gorm:"type:text"`
	EstimatedCompletionAt *time.Time    `json:"estimated_completion_at,omitempty" gorm:"type:timestamp"`
	CreatedAt             time.Time     `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt             time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ChannelQueueItem) TableName() string {
	return "channel_queue_items"
}

// NewChannelQueueItem creates a pending queue item
func NewChannelQueueItem(channelID string, requestedBy *string, priority QueuePriority) *ChannelQueueItem {
	if priority == "" {
		priority = QueuePriorityNormal
	}
	return &ChannelQueueItem{
		ID:          uuid.New(),
		ChannelID:   channelID,
		RequestedBy: requestedBy,
		Status:      QueueStatusPending,
		Priority:    priority,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// IsTerminal reports whether the item reached a final state
func (q *ChannelQueueItem) IsTerminal() bool {
	return q.Status == QueueStatusCompleted || q.Status == QueueStatusFailed
}

// IsRetryable reports whether a failed item may be reset to pending
func (q *ChannelQueueItem) IsRetryable() bool {
	return q.Status == QueueStatusFailed && q.RetryCount < MaxQueueRetries
}
