package entities

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole is the author of a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Citation points a chat answer back into transcript material. Context
// citations carry video/time fields; citations extracted from the model's
// own timestamps carry Timestamp/Seconds. Clients tolerate both shapes.
type Citation struct {
	VideoID    string `json:"videoId,omitempty"`
	VideoTitle string `json:"videoTitle,omitempty"`
	StartTime  int    `json:"startTime,omitempty"`
	EndTime    int    `json:"endTime,omitempty"`
	Text       string `json:"text,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Seconds    int    `json:"seconds,omitempty"`
}

// ChatSession targets exactly one of a video or a channel
type ChatSession struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID       *string   `json:"user_id,omitempty" gorm:"type:varchar(64);index"` // nil for anonymous
	VideoID      *string   `json:"video_id,omitempty" gorm:"type:varchar(32);index"`
	ChannelID    *string   `json:"channel_id,omitempty" gorm:"type:varchar(64);index"`
	Title        string    `json:"title" gorm:"type:varchar(255)"`
	MessageCount int       `json:"message_count" gorm:"type:integer;default:0"`
	LastActivity time.Time `json:"last_activity" gorm:"type:timestamp"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// NewVideoChatSession creates a session targeting a single video
func NewVideoChatSession(userID *string, videoID, title string) *ChatSession {
	return &ChatSession{
		ID:           uuid.New(),
		UserID:       userID,
		VideoID:      &videoID,
		Title:        title,
		LastActivity: time.Now(),
		CreatedAt:    time.Now(),
	}
}

// NewChannelChatSession creates a session targeting an entire channel
func NewChannelChatSession(userID *string, channelID, title string) *ChatSession {
	return &ChatSession{
		ID:           uuid.New(),
		UserID:       userID,
		ChannelID:    &channelID,
		Title:        title,
		LastActivity: time.Now(),
		CreatedAt:    time.Now(),
	}
}

// ChatMessage is one conversation turn. Ordering is CreatedAt with
// insertion order as tiebreak.
type ChatMessage struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID uuid.UUID  `json:"session_id" gorm:"type:uuid;not null;index"`
	Role      ChatRole   `json:"role" gorm:"type:varchar(20);not null"`
	Content   string     `json:"content" gorm:"type:text"`
	Citations []Citation `json:"citations,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (ChatMessage) TableName() string {
	return "chat_messages"
}
