// Package voice drives text-to-speech generation: it charges the character
// balance, calls the synthesis engine, and records the produced clip.
package voice

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes audio file persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audio file repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a generated clip record.
func (r *Repository) Create(ctx context.Context, file *models.AudioFile) (*models.AudioFile, error) {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// ListByUser returns the user's clips, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AudioFile, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.AudioFile
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateClone inserts a cloned voice record.
func (r *Repository) CreateClone(ctx context.Context, clone *models.ClonedVoice) (*models.ClonedVoice, error) {
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(clone).Error; err != nil {
		return nil, err
	}
	return clone, nil
}

// ListClonesByUser returns the user's cloned voices, newest first, optionally
// filtered by a case-insensitive name search.
func (r *Repository) ListClonesByUser(ctx context.Context, userID uuid.UUID, search string) ([]models.ClonedVoice, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if search != "" {
		query = query.Where("LOWER(voice_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var rows []models.ClonedVoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCloneByID looks up a cloned voice by primary key.
func (r *Repository) FindCloneByID(ctx context.Context, id uuid.UUID) (*models.ClonedVoice, error) {
	var clone models.ClonedVoice
	if err := r.db.WithContext(ctx).First(&clone, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &clone, nil
}

// DeleteClone removes a cloned voice record.
func (r *Repository) DeleteClone(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ClonedVoice{}, "id = ?", id).Error
}
