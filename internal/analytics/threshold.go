package analytics

import "github.com/shopspring/decimal"

type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

type Thresholds struct {
	Target   decimal.Decimal `json:"target"`
	Warning  decimal.Decimal `json:"warning"`
	Critical decimal.Decimal `json:"critical"`
}

// Targets are the per-restaurant thresholds for both cost ratios.
type Targets struct {
	LabourCostPercent Thresholds `json:"labour_cost_percent"`
	FoodCostPercent   Thresholds `json:"food_cost_percent"`
}

func DefaultTargets() Targets {
	return Targets{
		LabourCostPercent: Thresholds{
			Target:   decimal.NewFromInt(25),
			Warning:  decimal.NewFromInt(28),
			Critical: decimal.NewFromInt(30),
		},
		FoodCostPercent: Thresholds{
			Target:   decimal.NewFromInt(32),
			Warning:  decimal.NewFromInt(35),
			Critical: decimal.NewFromInt(38),
		},
	}
}

// Classify places value in a band. Each band includes its lower edge.
func Classify(value decimal.Decimal, t Thresholds) Status {
	switch {
	case value.GreaterThanOrEqual(t.Critical):
		return StatusCritical
	case value.GreaterThanOrEqual(t.Warning):
		return StatusWarning
	default:
		return StatusGood
	}
}

type Alerts struct {
	LabourCost Status `json:"labour_cost"`
	FoodCost   Status `json:"food_cost"`
}

func ClassifyRatios(r Ratios, t Targets) Alerts {
	return Alerts{
		LabourCost: Classify(r.LabourCostPercent, t.LabourCostPercent),
		FoodCost:   Classify(r.FoodCostPercent, t.FoodCostPercent),
	}
}
