package models

import (
	"time"

	"github.com/google/uuid"
)

// AudioFile records a generated clip and where the engine stored it.
type AudioFile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	FilePath       string    `gorm:"column:file_path;not null"`
	VoiceModel     string    `gorm:"column:voice_model;not null;default:''"`
	Language       string    `gorm:"column:language;not null;default:''"`
	CharacterCount int64     `gorm:"column:character_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
