package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus tracks the lifecycle of a paid subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription binds a user to a plan.
type Subscription struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	PlanID    uuid.UUID          `gorm:"type:uuid;not null"`
	Status    SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
