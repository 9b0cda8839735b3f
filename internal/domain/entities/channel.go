package entities

import (
	"time"
)

// ChannelStatus represents the indexing state of a channel
type ChannelStatus string

const (
	ChannelStatusPending    ChannelStatus = "pending"
	ChannelStatusProcessing ChannelStatus = "processing"
	ChannelStatusReady      ChannelStatus = "ready"
	ChannelStatusFailed     ChannelStatus = "failed"
)

// Channel is a YouTube channel tracked by the indexer.
// Identity is the provider channel id. Status transitions are monotonic
// except failed→pending via operator retry.
type Channel struct {
	ExternalID    string        `json:"external_id" gorm:"type:varchar(64);primary_key"`
	Title         string        `json:"title" gorm:"type:varchar(255)"`
	Handle        string        `json:"handle,omitempty" gorm:"type:varchar(128);index"`
	Status        ChannelStatus `json:"status" gorm:"type:varchar(20);not null;index;default:'pending'"`
	VideoCount    int           `json:"video_count" gorm:"type:integer;default:0"`
	LastIndexedAt *time.Time    `json:"last_indexed_at,omitempty" gorm:"type:timestamp"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Channel) TableName() string {
	return "channels"
}

// NewChannel creates a pending channel row
func NewChannel(externalID, title string) *Channel {
	return &Channel{
		ExternalID: externalID,
		Title:      title,
		Status:     ChannelStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}
