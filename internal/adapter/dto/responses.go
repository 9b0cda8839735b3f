package dto

import (
	"time"

	"github.com/tubechat/tubechat/internal/domain/entities"
)

// QueueItemResponse is the queue row surface returned to clients
type QueueItemResponse struct {
	ID                    string     `json:"id"`
	ChannelID             string     `json:"channelId"`
	Status                string     `json:"status"`
	Priority              string     `json:"priority"`
	RetryCount            int        `json:"retryCount"`
	TotalVideos           int        `json:"totalVideos"`
	VideosProcessed       int        `json:"videosProcessed"`
	CurrentVideoIndex     int        `json:"currentVideoIndex"`
	CurrentVideoTitle     string     `json:"currentVideoTitle,omitempty"`
	StartedAt             *time.Time `json:"startedAt,omitempty"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	ErrorMessage          *string    `json:"errorMessage,omitempty"`
	EstimatedCompletionAt *time.Time `json:"estimatedCompletionAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// NewQueueItemResponse maps a queue entity to its response shape
func NewQueueItemResponse(item *entities.ChannelQueueItem) *QueueItemResponse {
	if item == nil {
		return nil
	}
	return &QueueItemResponse{
		ID:                    item.ID.String(),
		ChannelID:             item.ChannelID,
		Status:                string(item.Status),
		Priority:              string(item.Priority),
		RetryCount:            item.RetryCount,
		TotalVideos:           item.TotalVideos,
		VideosProcessed:       item.VideosProcessed,
		CurrentVideoIndex:     item.CurrentVideoIndex,
		CurrentVideoTitle:     item.CurrentVideoTitle,
		StartedAt:             item.StartedAt,
		CompletedAt:           item.CompletedAt,
		ErrorMessage:          item.ErrorMessage,
		EstimatedCompletionAt: item.EstimatedCompletionAt,
		CreatedAt:             item.CreatedAt,
	}
}

// EnqueueResponse reports the outcome of an enqueue call
type EnqueueResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Item    *QueueItemResponse `json:"item,omitempty"`
}

// SummaryResponse carries a generated video summary. Summaries are built
// from the transcript truncated at 8,000 characters.
type SummaryResponse struct {
	VideoID   string `json:"videoId"`
	Summary   string `json:"summary"`
	Truncated bool   `json:"truncated"`
}

// MonitorStatsResponse is the operational snapshot
type MonitorStatsResponse struct {
	Channels        int64 `json:"channels"`
	Videos          int64 `json:"videos"`
	VideosProcessed int64 `json:"videosProcessed"`
	QueuePending    int64 `json:"queuePending"`
	QueueProcessing int64 `json:"queueProcessing"`
	QueueFailed     int64 `json:"queueFailed"`
	ActiveStreams   int   `json:"activeStreams"`
}

// ErrorStatsResponse summarizes captured errors
type ErrorStatsResponse struct {
	Last24h int64            `json:"last24h"`
	ByType  map[string]int64 `json:"byType"`
}
