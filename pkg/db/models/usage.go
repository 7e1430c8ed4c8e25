package models

import (
	"time"

	"github.com/google/uuid"
)

// Usage tracks per-user character consumption against the plan allowance.
type Usage struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	CharactersUsed      int64      `gorm:"column:characters_used;not null;default:0"`
	CharactersRemaining int64      `gorm:"column:characters_remaining;not null;default:0"`
	LastGeneratedAt     *time.Time `gorm:"column:last_generated_at"`
}
