package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// money and ratios go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the calendar-date format used for entry dates everywhere.
const DateLayout = "2006-01-02"

// KPIEntry is one restaurant-day record. The percent and ticket columns are
// derived from Revenue, LabourCost, FoodCost and Orders on every write.
type KPIEntry struct {
	ID           uint `gorm:"primaryKey"`
	RestaurantID uint `gorm:"not null;uniqueIndex:idx_kpi_restaurant_date"`
	Restaurant   *Restaurant
	EntryDate    time.Time `gorm:"type:date;not null;uniqueIndex:idx_kpi_restaurant_date;index"`

	Revenue    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	LabourCost decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	FoodCost   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Orders     int64           `gorm:"not null;default:0"`

	LabourCostPercent decimal.Decimal `gorm:"type:numeric(16,2);not null;default:0"`
	FoodCostPercent   decimal.Decimal `gorm:"type:numeric(16,2);not null;default:0"`
	AvgTicket         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	Notes     string `gorm:"size:500"`
	CreatedBy uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (KPIEntry) TableName() string {
	return "kpi_entries"
}
