package analytics

import "github.com/shopspring/decimal"

// Trend is the percentage change from previous to current. A zero previous
// value yields 100 when current is positive and 0 otherwise.
func Trend(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.Sign() > 0 {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(Places)
}

func TrendInt(current, previous int64) decimal.Decimal {
	return Trend(decimal.NewFromInt(current), decimal.NewFromInt(previous))
}

// Trends are the period-over-period changes reported for a bucket or a summary.
type Trends struct {
	Revenue    decimal.Decimal `json:"revenue"`
	Orders     decimal.Decimal `json:"orders"`
	LabourCost decimal.Decimal `json:"labour_cost"`
	FoodCost   decimal.Decimal `json:"food_cost"`
}

// CompareSums trends revenue and orders on the raw sums and the two cost
// metrics on their derived percentages.
func CompareSums(current, previous Sums) Trends {
	cur, prev := current.Ratios(), previous.Ratios()
	return Trends{
		Revenue:    Trend(current.Revenue, previous.Revenue),
		Orders:     TrendInt(current.Orders, previous.Orders),
		LabourCost: Trend(cur.LabourCostPercent, prev.LabourCostPercent),
		FoodCost:   Trend(cur.FoodCostPercent, prev.FoodCostPercent),
	}
}
