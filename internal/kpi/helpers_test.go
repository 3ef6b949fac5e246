package kpi

import (
	"context"
	"io"
	"testing"
	"time"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/audit"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/scope"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	store   *repo.MemoryStore
	audit   *audit.Service
	svc     *Service
	invalid *recordingInvalidator
	rA, rB  uint
}

type recordingInvalidator struct{ ids []uint }

func (r *recordingInvalidator) Invalidate(_ context.Context, id uint) { r.ids = append(r.ids, id) }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemoryStore()
	log := quietLogger()

	a := models.Restaurant{Name: "Kadikoy"}
	b := models.Restaurant{Name: "Besiktas"}
	for _, r := range []*models.Restaurant{&a, &b} {
		if err := store.CreateRestaurant(ctx, r); err != nil {
			t.Fatalf("create restaurant: %v", err)
		}
	}

	auditSvc := audit.NewService(store, log)
	inv := &recordingInvalidator{}
	svc := NewService(store, auditSvc, inv, log)
	auditSvc.Register(models.EntityKPIEntry, svc.Reverter())

	return &fixture{store: store, audit: auditSvc, svc: svc, invalid: inv, rA: a.ID, rB: b.ID}
}

func admin() scope.Caller { return scope.Caller{UserID: 1, Role: models.RoleAdmin} }

func manager(rid uint) scope.Caller {
	return scope.Caller{UserID: 2, Role: models.RoleManager, RestaurantID: &rid}
}

func viewer(rid uint) scope.Caller {
	return scope.Caller{UserID: 3, Role: models.RoleViewer, RestaurantID: &rid}
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(n int64) *int64 { return &n }

func uintp(n uint) *uint { return &n }

func createReq(rid uint, date, revenue, labour, food string, orders int64) CreateEntryRequest {
	return CreateEntryRequest{
		RestaurantID: rid,
		EntryDate:    date,
		Revenue:      decp(revenue),
		LabourCost:   decp(labour),
		FoodCost:     decp(food),
		Orders:       intp(orders),
	}
}

func (f *fixture) mustCreate(t *testing.T, req CreateEntryRequest) models.KPIEntry {
	t.Helper()
	e, err := f.svc.CreateEntry(context.Background(), admin(), req)
	if err != nil {
		t.Fatalf("CreateEntry(%s): %v", req.EntryDate, err)
	}
	return e
}

func assertDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := analytics.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
