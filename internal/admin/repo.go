// Package admin exposes the operator surface: platform-wide statistics and
// manual plan assignment.
package admin

import (
	"context"
	"time"

	"github.com/vocalize-ai/vocalize-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Stats is the platform overview an operator sees.
type Stats struct {
	TotalUsers          int64     `json:"total_users"`
	TotalAdmins         int64     `json:"total_admins"`
	ActiveUsers         int64     `json:"active_users"`
	TotalPlans          int64     `json:"total_plans"`
	TotalAudios         int64     `json:"total_audios"`
	RecentUsers         int64     `json:"recent_users"`
	TotalCharactersUsed int64     `json:"total_characters_used"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Repository runs the aggregate queries behind the stats view.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an admin repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Collect gathers the platform counters in one pass. Active users are those
// currently holding a plan; recent users registered in the last 30 days.
func (r *Repository) Collect(ctx context.Context) (*Stats, error) {
	db := r.db.WithContext(ctx)
	stats := Stats{LastUpdated: time.Now().UTC()}

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&stats.TotalAdmins).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("plan_id IS NOT NULL").Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Plan{}).Count(&stats.TotalPlans).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.AudioFile{}).Count(&stats.TotalAudios).Error; err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := db.Model(&models.User{}).Where("created_at >= ?", cutoff).Count(&stats.RecentUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Usage{}).
		Select("COALESCE(SUM(characters_used), 0)").
		Scan(&stats.TotalCharactersUsed).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
