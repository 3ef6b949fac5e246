// Package analytics holds the arithmetic behind the KPI reports: derived
// ratios, period-over-period trends, threshold classification and
// calendar bucketing. Everything here is pure; callers fetch the numbers.
package analytics

import "github.com/shopspring/decimal"

// Places is the number of decimal places kept for percentages, tickets and trends.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Percent returns part/whole*100, or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.Sign() <= 0 {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(Places)
}

// AvgTicket returns revenue/orders, or zero when there are no orders.
func AvgTicket(revenue decimal.Decimal, orders int64) decimal.Decimal {
	if orders <= 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(orders)).Round(Places)
}

type Ratios struct {
	LabourCostPercent decimal.Decimal `json:"labour_cost_percent"`
	FoodCostPercent   decimal.Decimal `json:"food_cost_percent"`
	AvgTicket         decimal.Decimal `json:"avg_ticket"`
}

func DeriveRatios(revenue, labourCost, foodCost decimal.Decimal, orders int64) Ratios {
	return Ratios{
		LabourCostPercent: Percent(labourCost, revenue),
		FoodCostPercent:   Percent(foodCost, revenue),
		AvgTicket:         AvgTicket(revenue, orders),
	}
}

// Sums accumulates the authoritative figures of one or more entries. Sums are
// kept exact; ratios are derived from them, never averaged.
type Sums struct {
	Revenue    decimal.Decimal `json:"total_revenue"`
	LabourCost decimal.Decimal `json:"total_labour_cost"`
	FoodCost   decimal.Decimal `json:"total_food_cost"`
	Orders     int64           `json:"total_orders"`
	Entries    int             `json:"entries"`
}

func (s *Sums) Add(revenue, labourCost, foodCost decimal.Decimal, orders int64) {
	s.Revenue = s.Revenue.Add(revenue)
	s.LabourCost = s.LabourCost.Add(labourCost)
	s.FoodCost = s.FoodCost.Add(foodCost)
	s.Orders += orders
	s.Entries++
}

func (s Sums) Ratios() Ratios {
	return DeriveRatios(s.Revenue, s.LabourCost, s.FoodCost, s.Orders)
}
