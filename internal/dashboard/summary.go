// Package dashboard assembles the per-restaurant summary shown on the
// dashboard: current totals, change against the previous window, alert
// status and a daily chart.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/cache"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/scope"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	repo.EntryStore
	repo.RestaurantStore
}

type SummaryQuery struct {
	RestaurantID *uint
	StartDate    string
	EndDate      string
}

type Snapshot struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int64           `json:"total_orders"`
	AvgTicket         decimal.Decimal `json:"avg_ticket"`
	LabourCostPercent decimal.Decimal `json:"labour_cost_percent"`
	FoodCostPercent   decimal.Decimal `json:"food_cost_percent"`
}

type ChartPoint struct {
	Date              string          `json:"date"`
	Revenue           decimal.Decimal `json:"revenue"`
	LabourCost        decimal.Decimal `json:"labour_cost"`
	FoodCost          decimal.Decimal `json:"food_cost"`
	Orders            int64           `json:"orders"`
	LabourCostPercent decimal.Decimal `json:"labour_cost_percent"`
	FoodCostPercent   decimal.Decimal `json:"food_cost_percent"`
	AvgTicket         decimal.Decimal `json:"avg_ticket"`
}

type Summary struct {
	RestaurantID      uint              `json:"restaurant_id"`
	RestaurantName    string            `json:"restaurant_name"`
	StartDate         string            `json:"start_date"`
	EndDate           string            `json:"end_date"`
	PreviousStartDate string            `json:"previous_start_date"`
	PreviousEndDate   string            `json:"previous_end_date"`
	Current           Snapshot          `json:"current"`
	Trends            analytics.Trends  `json:"trends"`
	Alerts            analytics.Alerts  `json:"alerts"`
	Targets           analytics.Targets `json:"targets"`
	ChartData         []ChartPoint      `json:"chart_data"`
}

// Builder never writes, so its summaries are safe to cache and retry.
type Builder struct {
	store Store
	cache *cache.Cache
	log   *logrus.Logger
}

// NewBuilder returns a Builder. c may be nil to disable caching.
func NewBuilder(store Store, c *cache.Cache, log *logrus.Logger) *Builder {
	return &Builder{store: store, cache: c, log: log}
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperr.Validation(field+" is required", map[string]string{field: "required"})
	}
	d, err := analytics.ParseDate(value)
	if err != nil {
		return time.Time{}, apperr.Validation("dates must use the YYYY-MM-DD format", map[string]string{field: value})
	}
	return d, nil
}

func (b *Builder) BuildSummary(ctx context.Context, caller scope.Caller, q SummaryQuery) (Summary, error) {
	rid, err := scope.ResolveRead(caller, q.RestaurantID)
	if err != nil {
		return Summary{}, err
	}
	if rid == nil {
		return Summary{}, apperr.Validation("restaurant_id is required", map[string]string{"restaurant_id": "required"})
	}

	start, err := parseDate("start_date", q.StartDate)
	if err != nil {
		return Summary{}, err
	}
	end, err := parseDate("end_date", q.EndDate)
	if err != nil {
		return Summary{}, err
	}
	if start.After(end) {
		return Summary{}, apperr.Validation("start_date must not be after end_date",
			map[string]string{"start_date": q.StartDate, "end_date": q.EndDate})
	}

	key, err := b.cache.BuildKey(ctx, *rid, "dashboard", q.StartDate, q.EndDate)
	if err != nil {
		config.LogError(b.log, "dashboard", "BuildSummary", "cache key unavailable, computing directly", *rid, err)
		key = ""
	}

	var summary Summary
	err = b.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return b.compute(ctx, *rid, start, end)
	})
	return summary, err
}

func (b *Builder) compute(ctx context.Context, restaurantID uint, start, end time.Time) (Summary, error) {
	name, ok, err := b.store.RestaurantName(ctx, restaurantID)
	if err != nil {
		return Summary{}, fmt.Errorf("restaurant name: %w", err)
	}
	if !ok {
		name = models.UnknownRestaurantName
	}

	current, _, err := b.store.PeriodTotals(ctx, restaurantID, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("current totals: %w", err)
	}

	prevStart, prevEnd := analytics.PreviousWindow(start, end)
	previous, _, err := b.store.PeriodTotals(ctx, restaurantID, prevStart, prevEnd)
	if err != nil {
		return Summary{}, fmt.Errorf("previous totals: %w", err)
	}

	targets, err := b.store.Targets(ctx, restaurantID)
	if err != nil {
		return Summary{}, fmt.Errorf("targets: %w", err)
	}

	series, err := b.store.DailySeries(ctx, restaurantID, start, end)
	if err != nil {
		return Summary{}, fmt.Errorf("daily series: %w", err)
	}

	ratios := current.Ratios()
	return Summary{
		RestaurantID:      restaurantID,
		RestaurantName:    name,
		StartDate:         start.Format(models.DateLayout),
		EndDate:           end.Format(models.DateLayout),
		PreviousStartDate: prevStart.Format(models.DateLayout),
		PreviousEndDate:   prevEnd.Format(models.DateLayout),
		Current: Snapshot{
			TotalRevenue:      current.Revenue,
			TotalOrders:       current.Orders,
			AvgTicket:         ratios.AvgTicket,
			LabourCostPercent: ratios.LabourCostPercent,
			FoodCostPercent:   ratios.FoodCostPercent,
		},
		Trends:    analytics.CompareSums(current, previous),
		Alerts:    analytics.ClassifyRatios(ratios, targets),
		Targets:   targets,
		ChartData: chartData(series),
	}, nil
}

func chartData(entries []models.KPIEntry) []ChartPoint {
	points := make([]ChartPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, ChartPoint{
			Date:              e.EntryDate.Format(models.DateLayout),
			Revenue:           e.Revenue,
			LabourCost:        e.LabourCost,
			FoodCost:          e.FoodCost,
			Orders:            e.Orders,
			LabourCostPercent: e.LabourCostPercent,
			FoodCostPercent:   e.FoodCostPercent,
			AvgTicket:         e.AvgTicket,
		})
	}
	return points
}
