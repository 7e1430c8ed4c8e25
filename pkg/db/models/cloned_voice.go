package models

import (
	"time"

	"github.com/google/uuid"
)

// ClonedVoice records a user-uploaded voice sample and the speaker id the
// synthesis engine assigned to it. Generation requests reference the clone
// through the speaker id.
type ClonedVoice struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"column:voice_name;not null"`
	SpeakerID string    `gorm:"column:speaker_id;not null;default:''"`
	FilePath  string    `gorm:"column:file_path;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
