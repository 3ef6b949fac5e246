package kpi

import (
	"time"

	"restoran-kpi/internal/models"

	"github.com/shopspring/decimal"
)

// Money fields are capped at 1e9 so sums and ratios fit their numeric columns.
type CreateEntryRequest struct {
	RestaurantID uint             `json:"restaurant_id" validate:"required"`
	EntryDate    string           `json:"entry_date" validate:"required"` // "2024-01-31"
	Revenue      *decimal.Decimal `json:"revenue" validate:"required,gte=0,lte=1000000000"`
	LabourCost   *decimal.Decimal `json:"labour_cost" validate:"required,gte=0,lte=1000000000"`
	FoodCost     *decimal.Decimal `json:"food_cost" validate:"required,gte=0,lte=1000000000"`
	Orders       *int64           `json:"orders" validate:"required,gte=0"`
	Notes        string           `json:"notes" validate:"max=500"`
}

// UpdateEntryRequest is a partial update; nil fields keep their stored value.
type UpdateEntryRequest struct {
	EntryDate  *string          `json:"entry_date" validate:"omitempty"`
	Revenue    *decimal.Decimal `json:"revenue" validate:"omitempty,gte=0,lte=1000000000"`
	LabourCost *decimal.Decimal `json:"labour_cost" validate:"omitempty,gte=0,lte=1000000000"`
	FoodCost   *decimal.Decimal `json:"food_cost" validate:"omitempty,gte=0,lte=1000000000"`
	Orders     *int64           `json:"orders" validate:"omitempty,gte=0"`
	Notes      *string          `json:"notes" validate:"omitempty,max=500"`
}

type EntryResponse struct {
	ID                uint            `json:"id"`
	RestaurantID      uint            `json:"restaurant_id"`
	EntryDate         string          `json:"entry_date"`
	Revenue           decimal.Decimal `json:"revenue"`
	LabourCost        decimal.Decimal `json:"labour_cost"`
	FoodCost          decimal.Decimal `json:"food_cost"`
	Orders            int64           `json:"orders"`
	LabourCostPercent decimal.Decimal `json:"labour_cost_percent"`
	FoodCostPercent   decimal.Decimal `json:"food_cost_percent"`
	AvgTicket         decimal.Decimal `json:"avg_ticket"`
	Notes             string          `json:"notes"`
	CreatedBy         uint            `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func NewEntryResponse(e models.KPIEntry) EntryResponse {
	return EntryResponse{
		ID:                e.ID,
		RestaurantID:      e.RestaurantID,
		EntryDate:         e.EntryDate.Format(models.DateLayout),
		Revenue:           e.Revenue,
		LabourCost:        e.LabourCost,
		FoodCost:          e.FoodCost,
		Orders:            e.Orders,
		LabourCostPercent: e.LabourCostPercent,
		FoodCostPercent:   e.FoodCostPercent,
		AvgTicket:         e.AvgTicket,
		Notes:             e.Notes,
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

// ListQuery holds the raw listing filters as received.
type ListQuery struct {
	RestaurantID *uint
	StartDate    string
	EndDate      string
}

// AggregateQuery holds the raw aggregate parameters as received.
type AggregateQuery struct {
	RestaurantID *uint
	StartDate    string
	EndDate      string
	Granularity  string
}
