package models

import "time"

// KVEntry backs the flat string-keyed store used for ledger persistence and
// usage mirrors. Values are opaque; a malformed value is treated as absent by
// readers.
type KVEntry struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (KVEntry) TableName() string { return "kv_entries" }
