package dto

import (
	"github.com/tubechat/tubechat/internal/usecase/chat"
)

// ProcessChannelRequest enqueues a channel for ingestion
type ProcessChannelRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
	Priority  string `json:"priority" validate:"priority"`
}

// ProcessVideoRequest enqueues an ad-hoc video for ingestion
type ProcessVideoRequest struct {
	VideoID  string `json:"videoId" validate:"required"`
	Priority string `json:"priority" validate:"priority"`
}

// VideoChatRequest starts a streaming chat over a single video
type VideoChatRequest struct {
	Messages  []chat.Message `json:"messages" validate:"required,min=1,dive"`
	VideoID   string         `json:"videoId" validate:"required"`
	SessionID *string        `json:"sessionId,omitempty"`
}

// ChannelChatRequest starts a streaming chat over an entire channel
type ChannelChatRequest struct {
	Messages  []chat.Message `json:"messages" validate:"required,min=1,dive"`
	ChannelID string         `json:"channelId" validate:"required"`
	SessionID *string        `json:"sessionId,omitempty"`
}
