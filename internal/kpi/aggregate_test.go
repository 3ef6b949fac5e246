package kpi

import (
	"context"
	"testing"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/models"

	"github.com/shopspring/decimal"
)

func TestAggregateWeekScenario(t *testing.T) {
	f := newFixture(t)
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		f.mustCreate(t, createReq(f.rA, d, "1000", "300", "300", 40))
	}

	buckets, err := f.svc.Aggregate(context.Background(), admin(), AggregateQuery{
		RestaurantID: uintp(f.rA),
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-07",
		Granularity:  "week",
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(buckets))
	}

	b := buckets[0]
	if b.Period != "2024-01-01" || b.RestaurantName != "Kadikoy" || b.Entries != 3 {
		t.Fatalf("bucket = %+v", b)
	}
	assertDec(t, "total_revenue", b.Revenue, "3000")
	assertDec(t, "labour_cost_percent", b.LabourCostPercent, "30")
	assertDec(t, "avg_ticket", b.AvgTicket, "25")
	if b.Orders != 120 {
		t.Errorf("orders = %d, want 120", b.Orders)
	}
	if b.Alerts.LabourCost != analytics.StatusCritical {
		t.Errorf("labour status = %s, want critical", b.Alerts.LabourCost)
	}
	if b.Alerts.FoodCost != analytics.StatusGood {
		t.Errorf("food status = %s, want good", b.Alerts.FoodCost)
	}
	if b.Trends != nil {
		t.Errorf("single bucket should have no trends, got %+v", b.Trends)
	}
}

func TestAggregateAvgTicketFromSums(t *testing.T) {
	f := newFixture(t)
	// per-day tickets 10 and 50; average of tickets would be 30
	f.mustCreate(t, createReq(f.rA, "2024-01-01", "100", "0", "0", 10))
	f.mustCreate(t, createReq(f.rA, "2024-01-02", "500", "0", "0", 10))

	buckets, err := f.svc.Aggregate(context.Background(), admin(), AggregateQuery{
		RestaurantID: uintp(f.rA), StartDate: "2024-01-01", EndDate: "2024-01-31", Granularity: "month",
	})
	if err != nil || len(buckets) != 1 {
		t.Fatalf("Aggregate: %d buckets, err %v", len(buckets), err)
	}
	assertDec(t, "avg_ticket", buckets[0].AvgTicket, "30")
	assertDec(t, "total_revenue", buckets[0].Revenue, "600")
}

func TestAggregateTrendsSkipMissingPeriods(t *testing.T) {
	f := newFixture(t)
	// weeks of Jan 1 and Jan 15 have data; the week of Jan 8 has none
	f.mustCreate(t, createReq(f.rA, "2024-01-02", "1000", "250", "300", 40))
	f.mustCreate(t, createReq(f.rA, "2024-01-16", "1100", "330", "330", 44))
	f.mustCreate(t, createReq(f.rA, "2024-01-23", "1100", "330", "330", 44))

	buckets, err := f.svc.Aggregate(context.Background(), admin(), AggregateQuery{
		RestaurantID: uintp(f.rA), StartDate: "2024-01-01", EndDate: "2024-01-31", Granularity: "week",
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	periods := []string{}
	for _, b := range buckets {
		periods = append(periods, b.Period)
	}
	want := []string{"2024-01-22", "2024-01-15", "2024-01-01"}
	if len(periods) != len(want) {
		t.Fatalf("periods = %v, want %v", periods, want)
	}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("periods = %v, want %v", periods, want)
		}
	}

	if tr := buckets[0].Trends; tr == nil || !tr.Revenue.IsZero() {
		t.Fatalf("newest bucket trend = %+v, want revenue 0", tr)
	}
	// the Jan 15 week is compared with the Jan 1 week, not an empty Jan 8 week
	tr := buckets[1].Trends
	if tr == nil {
		t.Fatal("middle bucket should have trends")
	}
	assertDec(t, "revenue trend", tr.Revenue, "10")
	assertDec(t, "orders trend", tr.Orders, "10")
	assertDec(t, "labour trend", tr.LabourCost, "20")
	if buckets[2].Trends != nil {
		t.Fatal("oldest bucket should have no trends")
	}
}

func TestAggregateAllRestaurantsPairsWithinRestaurant(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, createReq(f.rA, "2024-01-01", "100", "10", "10", 1))
	f.mustCreate(t, createReq(f.rB, "2024-01-01", "400", "10", "10", 1))
	f.mustCreate(t, createReq(f.rA, "2024-01-02", "200", "10", "10", 1))
	f.mustCreate(t, createReq(f.rB, "2024-01-02", "200", "10", "10", 1))

	buckets, err := f.svc.Aggregate(context.Background(), admin(), AggregateQuery{
		StartDate: "2024-01-01", EndDate: "2024-01-02", Granularity: "day",
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(buckets))
	}

	trends := map[uint]decimal.Decimal{}
	for _, b := range buckets {
		if b.Period == "2024-01-02" {
			if b.Trends == nil {
				t.Fatalf("restaurant %d newest day has no trend", b.RestaurantID)
			}
			trends[b.RestaurantID] = b.Trends.Revenue
		}
	}
	assertDec(t, "restaurant A revenue trend", trends[f.rA], "100")
	assertDec(t, "restaurant B revenue trend", trends[f.rB], "-50")
}

func TestAggregateManagerPinnedToOwnRestaurant(t *testing.T) {
	f := newFixture(t)
	f.mustCreate(t, createReq(f.rA, "2024-01-01", "100", "10", "10", 1))
	f.mustCreate(t, createReq(f.rB, "2024-01-01", "900", "10", "10", 1))

	buckets, err := f.svc.Aggregate(context.Background(), manager(f.rA), AggregateQuery{
		RestaurantID: uintp(f.rB), StartDate: "2024-01-01", EndDate: "2024-01-31",
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(buckets) != 1 || buckets[0].RestaurantID != f.rA {
		t.Fatalf("manager should only get own restaurant, got %+v", buckets)
	}
}

func TestAggregateUsesRestaurantTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, createReq(f.rA, "2024-01-01", "1000", "300", "300", 10))

	custom := analytics.DefaultTargets()
	custom.LabourCostPercent = analytics.Thresholds{
		Target: decimal.NewFromInt(30), Warning: decimal.NewFromInt(33), Critical: decimal.NewFromInt(36),
	}
	if err := f.store.SetTargets(ctx, f.rA, custom); err != nil {
		t.Fatal(err)
	}

	buckets, err := f.svc.Aggregate(ctx, admin(), AggregateQuery{
		RestaurantID: uintp(f.rA), StartDate: "2024-01-01", EndDate: "2024-01-01",
	})
	if err != nil || len(buckets) != 1 {
		t.Fatalf("Aggregate: %v", err)
	}
	if buckets[0].Alerts.LabourCost != analytics.StatusGood {
		t.Fatalf("labour status = %s, want good under custom targets", buckets[0].Alerts.LabourCost)
	}
}

func TestAggregateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := map[string]AggregateQuery{
		"missing dates":   {Granularity: "day"},
		"bad date":        {StartDate: "2024-13-01", EndDate: "2024-12-31"},
		"inverted range":  {StartDate: "2024-02-01", EndDate: "2024-01-01"},
		"bad granularity": {StartDate: "2024-01-01", EndDate: "2024-01-31", Granularity: "year"},
	}
	for name, q := range tests {
		if _, err := f.svc.Aggregate(ctx, admin(), q); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%s: want validation error, got %v", name, err)
		}
	}

	unassigned := manager(0)
	unassigned.RestaurantID = nil
	_, err := f.svc.Aggregate(ctx, unassigned, AggregateQuery{StartDate: "2024-01-01", EndDate: "2024-01-31"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("unassigned manager: want forbidden, got %v", err)
	}
}

func TestAggregateUnknownRestaurantName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := models.KPIEntry{RestaurantID: 77, EntryDate: mustDate(t, "2024-01-01"), Orders: 1}
	if err := f.store.CreateEntry(ctx, &e); err != nil {
		t.Fatal(err)
	}

	buckets, err := f.svc.Aggregate(ctx, admin(), AggregateQuery{
		RestaurantID: uintp(77), StartDate: "2024-01-01", EndDate: "2024-01-01",
	})
	if err != nil || len(buckets) != 1 {
		t.Fatalf("Aggregate: %v", err)
	}
	if buckets[0].RestaurantName != models.UnknownRestaurantName {
		t.Fatalf("name = %q", buckets[0].RestaurantName)
	}
}
