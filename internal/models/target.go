package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Target holds a restaurant's alert thresholds for the two cost ratios.
// A restaurant without a row uses the defaults from the analytics package.
type Target struct {
	ID           uint `gorm:"primaryKey"`
	RestaurantID uint `gorm:"not null;uniqueIndex"`

	LabourTarget   decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	LabourWarning  decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	LabourCritical decimal.Decimal `gorm:"type:numeric(5,2);not null"`

	FoodTarget   decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	FoodWarning  decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	FoodCritical decimal.Decimal `gorm:"type:numeric(5,2);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
