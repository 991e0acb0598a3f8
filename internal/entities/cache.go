package entities

import "time"

// CacheRecord is one persisted pagination result, keyed by the cache's
// fingerprint key pattern. The value is a JSON-serialized pagecache entry.
type CacheRecord struct {
	Key       string    `gorm:"primaryKey;size:256" json:"key"`
	Value     []byte    `gorm:"type:blob" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CacheRecord) TableName() string {
	return "pagination_cache"
}
