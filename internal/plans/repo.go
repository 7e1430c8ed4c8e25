// Package plans serves the purchasable plan catalog.
package plans

import (
	"context"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes plan persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a plan repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all plans ordered by ascending price.
func (r *Repository) List(ctx context.Context) ([]models.Plan, error) {
	var rows []models.Plan
	if err := r.db.WithContext(ctx).Order("price ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID fetches a plan by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}
