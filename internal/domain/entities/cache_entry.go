package entities

import (
	"time"
)

// CacheEntry is the store-backed tier of the two-tier cache
type CacheEntry struct {
	Key       string    `json:"key" gorm:"type:varchar(255);primary_key"`
	Value     string    `json:"value" gorm:"type:text"`
	ExpiresAt time.Time `json:"expires_at" gorm:"type:timestamp;not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (CacheEntry) TableName() string {
	return "cache_entries"
}
