package entities

import (
	"time"

	"github.com/google/uuid"
)

// RateAction is a rate-limited operation kind
type RateAction string

const (
	RateActionChat           RateAction = "chat"
	RateActionVideoUpload    RateAction = "video_upload"
	RateActionChannelProcess RateAction = "channel_process"
)

// UserClass buckets callers for rate-limit table lookup
type UserClass string

const (
	UserClassAnonymous UserClass = "anonymous"
	UserClassUser      UserClass = "user"
	UserClassPremium   UserClass = "premium"
)

// RateEvent is an append-only record of a rate-limited action.
// Events are pruned after 2 days.
type RateEvent struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Identifier string     `json:"identifier" gorm:"type:varchar(128);not null;index:idx_rate_events_lookup"`
	Action     RateAction `json:"action" gorm:"type:varchar(32);not null;index:idx_rate_events_lookup"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime;index:idx_rate_events_lookup"`
}

// TableName specifies the table name for GORM
func (RateEvent) TableName() string {
	return "rate_events"
}
