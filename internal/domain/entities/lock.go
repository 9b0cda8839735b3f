package entities

import (
	"time"

	"github.com/google/uuid"
)

// Lock is a time-bounded exclusive token over a string-named resource,
// enforced by unique-row insertion. At most one live lock per ResourceID.
type Lock struct {
	ResourceID string    `json:"resource_id" gorm:"type:varchar(128);primary_key"`
	LockID     string    `json:"lock_id" gorm:"type:varchar(64);not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"type:timestamp;not null;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Lock) TableName() string {
	return "locks"
}

// NewLock creates a lock row with a fresh opaque token
func NewLock(resourceID string, ttl time.Duration) *Lock {
	return &Lock{
		ResourceID: resourceID,
		LockID:     uuid.NewString(),
		ExpiresAt:  time.Now().Add(ttl),
		CreatedAt:  time.Now(),
	}
}

// Expired reports whether the lease TTL has passed
func (l *Lock) Expired() bool {
	return time.Now().After(l.ExpiresAt)
}
