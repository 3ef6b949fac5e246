// Package kpi owns daily KPI entries: their writes, listings and the
// period aggregation built on top of them.
package kpi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/audit"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/scope"
	"restoran-kpi/internal/validate"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	repo.EntryStore
	repo.RestaurantStore
}

type Auditor interface {
	Record(ctx context.Context, opts audit.LogOptions)
}

// Invalidator drops cached read models of a restaurant after its entries change.
type Invalidator interface {
	Invalidate(ctx context.Context, restaurantID uint)
}

type Service struct {
	store Store
	audit Auditor
	cache Invalidator
	log   *logrus.Logger
}

func NewService(store Store, auditor Auditor, cache Invalidator, log *logrus.Logger) *Service {
	return &Service{store: store, audit: auditor, cache: cache, log: log}
}

// derive recomputes the stored ratios from the authoritative figures.
func derive(e *models.KPIEntry) {
	r := analytics.DeriveRatios(e.Revenue, e.LabourCost, e.FoodCost, e.Orders)
	e.LabourCostPercent = r.LabourCostPercent
	e.FoodCostPercent = r.FoodCostPercent
	e.AvgTicket = r.AvgTicket
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(analytics.Places)
}

func parseDate(field, value string) (time.Time, error) {
	d, err := analytics.ParseDate(value)
	if err != nil {
		return time.Time{}, apperr.Validation("dates must use the YYYY-MM-DD format",
			map[string]string{field: value})
	}
	return d, nil
}

// parseRange parses optional bounds and rejects an inverted range.
func parseRange(start, end string) (*time.Time, *time.Time, error) {
	var s, e *time.Time
	if start != "" {
		d, err := parseDate("start_date", start)
		if err != nil {
			return nil, nil, err
		}
		s = &d
	}
	if end != "" {
		d, err := parseDate("end_date", end)
		if err != nil {
			return nil, nil, err
		}
		e = &d
	}
	if s != nil && e != nil && s.After(*e) {
		return nil, nil, apperr.Validation("start_date must not be after end_date",
			map[string]string{"start_date": start, "end_date": end})
	}
	return s, e, nil
}

func entryNotFound(id uint) error {
	return apperr.NotFound("entry not found", map[string]uint{"id": id})
}

func duplicate(restaurantID uint, date time.Time) error {
	return apperr.Conflict("an entry already exists for this restaurant and date", map[string]any{
		"restaurant_id": restaurantID,
		"entry_date":    date.Format(models.DateLayout),
	})
}

func (s *Service) afterWrite(ctx context.Context, restaurantIDs ...uint) {
	if s.cache == nil {
		return
	}
	for _, id := range restaurantIDs {
		s.cache.Invalidate(ctx, id)
	}
}

func (s *Service) record(ctx context.Context, opts audit.LogOptions) {
	if s.audit == nil {
		return
	}
	opts.EntityType = models.EntityKPIEntry
	s.audit.Record(ctx, opts)
}

// ListEntries returns the caller-visible entries, most recent first.
func (s *Service) ListEntries(ctx context.Context, caller scope.Caller, q ListQuery) ([]models.KPIEntry, error) {
	rid, err := scope.ResolveList(caller, q.RestaurantID)
	if err != nil {
		return nil, err
	}
	start, end, err := parseRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, repo.EntryFilter{RestaurantID: rid, StartDate: start, EndDate: end})
}

func (s *Service) GetEntry(ctx context.Context, caller scope.Caller, id uint) (models.KPIEntry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.KPIEntry{}, entryNotFound(id)
		}
		return models.KPIEntry{}, err
	}

	rid, err := scope.ResolveList(caller, &e.RestaurantID)
	if err != nil {
		return models.KPIEntry{}, err
	}
	if rid != nil && *rid != e.RestaurantID {
		return models.KPIEntry{}, apperr.Forbidden("entry belongs to another restaurant")
	}
	return e, nil
}

func (s *Service) CreateEntry(ctx context.Context, caller scope.Caller, req CreateEntryRequest) (models.KPIEntry, error) {
	if err := validate.Struct(req); err != nil {
		return models.KPIEntry{}, err
	}
	date, err := parseDate("entry_date", req.EntryDate)
	if err != nil {
		return models.KPIEntry{}, err
	}
	if err := scope.AuthorizeWrite(caller, req.RestaurantID); err != nil {
		return models.KPIEntry{}, err
	}

	if _, err := s.store.GetRestaurant(ctx, req.RestaurantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.KPIEntry{}, apperr.NotFound("restaurant not found",
				map[string]uint{"restaurant_id": req.RestaurantID})
		}
		return models.KPIEntry{}, err
	}

	if _, err := s.store.FindEntry(ctx, req.RestaurantID, date); err == nil {
		return models.KPIEntry{}, duplicate(req.RestaurantID, date)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return models.KPIEntry{}, err
	}

	e := models.KPIEntry{
		RestaurantID: req.RestaurantID,
		EntryDate:    date,
		Revenue:      money(*req.Revenue),
		LabourCost:   money(*req.LabourCost),
		FoodCost:     money(*req.FoodCost),
		Orders:       *req.Orders,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedBy:    caller.UserID,
	}
	derive(&e)

	if err := s.store.CreateEntry(ctx, &e); err != nil {
		// lost the race against a concurrent insert
		if errors.Is(err, repo.ErrDuplicate) {
			return models.KPIEntry{}, duplicate(e.RestaurantID, date)
		}
		config.LogError(s.log, "kpi", "CreateEntry", "insert failed", NewEntryResponse(e), err)
		return models.KPIEntry{}, fmt.Errorf("create entry: %w", err)
	}

	s.record(ctx, audit.LogOptions{
		RestaurantID: &e.RestaurantID,
		UserID:       caller.UserID,
		EntityID:     e.ID,
		Action:       models.AuditActionCreate,
		Description:  fmt.Sprintf("KPI entry created for %s", e.EntryDate.Format(models.DateLayout)),
		After:        NewEntryResponse(e),
	})
	s.afterWrite(ctx, e.RestaurantID)

	s.log.WithFields(logrus.Fields{
		"entry_id":      e.ID,
		"restaurant_id": e.RestaurantID,
		"entry_date":    e.EntryDate.Format(models.DateLayout),
		"user_id":       caller.UserID,
	}).Info("kpi entry created")
	return e, nil
}

// UpdateEntry merges req into the stored entry and recomputes every derived
// field from the merged figures.
func (s *Service) UpdateEntry(ctx context.Context, caller scope.Caller, id uint, req UpdateEntryRequest) (models.KPIEntry, error) {
	if err := validate.Struct(req); err != nil {
		return models.KPIEntry{}, err
	}

	current, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.KPIEntry{}, entryNotFound(id)
		}
		return models.KPIEntry{}, err
	}
	if err := scope.AuthorizeWrite(caller, current.RestaurantID); err != nil {
		return models.KPIEntry{}, err
	}

	next := current
	if req.EntryDate != nil {
		date, err := parseDate("entry_date", *req.EntryDate)
		if err != nil {
			return models.KPIEntry{}, err
		}
		next.EntryDate = date
	}
	if req.Revenue != nil {
		next.Revenue = money(*req.Revenue)
	}
	if req.LabourCost != nil {
		next.LabourCost = money(*req.LabourCost)
	}
	if req.FoodCost != nil {
		next.FoodCost = money(*req.FoodCost)
	}
	if req.Orders != nil {
		next.Orders = *req.Orders
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}
	derive(&next)

	if !next.EntryDate.Equal(current.EntryDate) {
		if other, err := s.store.FindEntry(ctx, next.RestaurantID, next.EntryDate); err == nil && other.ID != id {
			return models.KPIEntry{}, duplicate(next.RestaurantID, next.EntryDate)
		} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return models.KPIEntry{}, err
		}
	}

	if err := s.store.SaveEntry(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return models.KPIEntry{}, duplicate(next.RestaurantID, next.EntryDate)
		case errors.Is(err, repo.ErrNotFound):
			return models.KPIEntry{}, entryNotFound(id)
		}
		config.LogError(s.log, "kpi", "UpdateEntry", "update failed", NewEntryResponse(next), err)
		return models.KPIEntry{}, fmt.Errorf("update entry %d: %w", id, err)
	}

	s.record(ctx, audit.LogOptions{
		RestaurantID: &next.RestaurantID,
		UserID:       caller.UserID,
		EntityID:     next.ID,
		Action:       models.AuditActionUpdate,
		Description:  fmt.Sprintf("KPI entry updated for %s", next.EntryDate.Format(models.DateLayout)),
		Before:       NewEntryResponse(current),
		After:        NewEntryResponse(next),
	})
	s.afterWrite(ctx, next.RestaurantID)

	s.log.WithFields(logrus.Fields{
		"entry_id":      next.ID,
		"restaurant_id": next.RestaurantID,
		"user_id":       caller.UserID,
	}).Info("kpi entry updated")
	return next, nil
}

func (s *Service) DeleteEntry(ctx context.Context, caller scope.Caller, id uint) error {
	if err := scope.AuthorizeDelete(caller); err != nil {
		return err
	}

	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return entryNotFound(id)
		}
		return err
	}

	if err := s.store.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return entryNotFound(id)
		}
		config.LogError(s.log, "kpi", "DeleteEntry", "delete failed", id, err)
		return fmt.Errorf("delete entry %d: %w", id, err)
	}

	s.record(ctx, audit.LogOptions{
		RestaurantID: &e.RestaurantID,
		UserID:       caller.UserID,
		EntityID:     e.ID,
		Action:       models.AuditActionDelete,
		Description:  fmt.Sprintf("KPI entry deleted for %s", e.EntryDate.Format(models.DateLayout)),
		Before:       NewEntryResponse(e),
	})
	s.afterWrite(ctx, e.RestaurantID)

	s.log.WithFields(logrus.Fields{
		"entry_id":      e.ID,
		"restaurant_id": e.RestaurantID,
		"user_id":       caller.UserID,
	}).Info("kpi entry deleted")
	return nil
}
