package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrorEvent is a captured failure with a redacted context object
type ErrorEvent struct {
	ID        uuid.UUID                                  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Message   string                                     `json:"message" gorm:"type:text"`
	Type      string                                     `json:"type" gorm:"type:varchar(64);index"`
	Stack     string                                     `json:"stack,omitempty" gorm:"type:text"`
	Context   datatypes.JSONType[map[string]interface{}] `json:"context,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time                                  `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (ErrorEvent) TableName() string {
	return "error_events"
}
