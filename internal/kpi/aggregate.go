package kpi

import (
	"context"
	"fmt"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/scope"
)

// Bucket is one aggregated (period, restaurant) row. Ratios come from the
// bucket's sums, not from averaging the daily values.
type Bucket struct {
	Period         string `json:"period"`
	RestaurantID   uint   `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name"`
	analytics.Sums
	analytics.Ratios

	// Trends compares against the next older bucket of the same restaurant
	// that has data. Periods without entries are skipped, not counted as
	// zero. Nil for a restaurant's oldest bucket.
	Trends *analytics.Trends `json:"trends"`
	Alerts analytics.Alerts  `json:"alerts"`
}

// Aggregate groups the caller-visible entries of [start, end] into buckets,
// newest period first.
func (s *Service) Aggregate(ctx context.Context, caller scope.Caller, q AggregateQuery) ([]Bucket, error) {
	rid, err := scope.ResolveRead(caller, q.RestaurantID)
	if err != nil {
		return nil, err
	}

	if q.StartDate == "" || q.EndDate == "" {
		return nil, apperr.Validation("start_date and end_date are required",
			map[string]string{"start_date": q.StartDate, "end_date": q.EndDate})
	}
	start, end, err := parseRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	g, err := analytics.ParseGranularity(q.Granularity)
	if err != nil {
		return nil, apperr.Validation("granularity must be day, week or month",
			map[string]string{"granularity": q.Granularity})
	}

	rows, err := s.store.AggregateByPeriod(ctx, rid, *start, *end, g)
	if err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}

	targets := map[uint]analytics.Targets{}
	buckets := make([]Bucket, len(rows))
	for i, row := range rows {
		t, ok := targets[row.RestaurantID]
		if !ok {
			t, err = s.store.Targets(ctx, row.RestaurantID)
			if err != nil {
				return nil, fmt.Errorf("load targets for restaurant %d: %w", row.RestaurantID, err)
			}
			targets[row.RestaurantID] = t
		}
		buckets[i] = newBucket(row, t)
	}

	attachTrends(rows, buckets)
	return buckets, nil
}

func newBucket(row repo.PeriodRow, t analytics.Targets) Bucket {
	name := row.RestaurantName
	if name == "" {
		name = models.UnknownRestaurantName
	}
	ratios := row.Sums.Ratios()
	return Bucket{
		Period:         row.Period.Format(models.DateLayout),
		RestaurantID:   row.RestaurantID,
		RestaurantName: name,
		Sums:           row.Sums,
		Ratios:         ratios,
		Alerts:         analytics.ClassifyRatios(ratios, t),
	}
}

// attachTrends pairs each row with the next row of the same restaurant in
// the descending list. rows and buckets share indexes.
func attachTrends(rows []repo.PeriodRow, buckets []Bucket) {
	older := map[uint]analytics.Sums{}
	for i := len(rows) - 1; i >= 0; i-- {
		rid := rows[i].RestaurantID
		if prev, ok := older[rid]; ok {
			tr := analytics.CompareSums(rows[i].Sums, prev)
			buckets[i].Trends = &tr
		}
		older[rid] = rows[i].Sums
	}
}
