package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable tier with a per-cycle character allowance.
type Plan struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name           string          `gorm:"type:text;not null;uniqueIndex"`
	CharacterLimit int64           `gorm:"column:character_limit;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
