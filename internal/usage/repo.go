// Package usage accounts per-user character consumption against the active
// plan allowance. The usage row is the authoritative balance; client-side
// gates only mirror it.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes usage persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a usage repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID fetches the usage row for a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	var row models.Usage
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the full usage row, inserting when absent.
func (r *Repository) Upsert(ctx context.Context, row *models.Usage) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(row).Error
}

// Deduct atomically charges count characters against the user's balance.
// The WHERE guard makes the check-and-deduct a single statement, so two
// concurrent generations cannot both pass a stale balance check. Returns
// false when the balance was insufficient (or no row exists).
func (r *Repository) Deduct(ctx context.Context, userID uuid.UUID, count int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("user_id = ? AND characters_remaining >= ?", userID, count).
		UpdateColumns(map[string]any{
			"characters_used":      gorm.Expr("characters_used + ?", count),
			"characters_remaining": gorm.Expr("characters_remaining - ?", count),
			"last_generated_at":    at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Credit returns count characters to the balance, undoing a deduction whose
// generation never completed.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, count int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{
			"characters_used":      gorm.Expr("characters_used - ?", count),
			"characters_remaining": gorm.Expr("characters_remaining + ?", count),
		}).Error
}

// Reset overwrites the row with a fresh allowance, creating it when absent.
func (r *Repository) Reset(ctx context.Context, userID uuid.UUID, limit int64) error {
	var row models.Usage
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	switch {
	case err == nil:
		row.CharactersUsed = 0
		row.CharactersRemaining = limit
		return r.db.WithContext(ctx).Save(&row).Error
	case err == gorm.ErrRecordNotFound:
		row = models.Usage{
			ID:                  uuid.New(),
			UserID:              userID,
			CharactersUsed:      0,
			CharactersRemaining: limit,
		}
		return r.db.WithContext(ctx).Create(&row).Error
	default:
		return err
	}
}

// ListNegativeRemaining returns usage rows whose remaining balance has gone
// below zero. Race windows between check and balance edits elsewhere can
// produce these.
func (r *Repository) ListNegativeRemaining(ctx context.Context) ([]models.Usage, error) {
	var rows []models.Usage
	if err := r.db.WithContext(ctx).Where("characters_remaining < 0").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ClampRemaining floors a usage row's remaining balance at zero.
func (r *Repository) ClampRemaining(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("id = ? AND characters_remaining < 0", id).
		UpdateColumn("characters_remaining", 0).Error
}
