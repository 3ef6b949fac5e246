package kpi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/audit"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
)

// Reverter returns the audit reverter for KPI entries. Reverted writes are
// not audited again here; the audit service logs the undo itself.
func (s *Service) Reverter() audit.Reverter {
	return entryReverter{s}
}

type entryReverter struct{ s *Service }

func decodeSnapshot(raw []byte) (models.KPIEntry, error) {
	var snap EntryResponse
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.KPIEntry{}, fmt.Errorf("decode entry snapshot: %w", err)
	}
	date, err := parseDate("entry_date", snap.EntryDate)
	if err != nil {
		return models.KPIEntry{}, err
	}
	e := models.KPIEntry{
		ID:           snap.ID,
		RestaurantID: snap.RestaurantID,
		EntryDate:    date,
		Revenue:      snap.Revenue,
		LabourCost:   snap.LabourCost,
		FoodCost:     snap.FoodCost,
		Orders:       snap.Orders,
		Notes:        snap.Notes,
		CreatedBy:    snap.CreatedBy,
	}
	derive(&e)
	return e, nil
}

func (r entryReverter) Remove(ctx context.Context, id uint) error {
	e, err := r.s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("entry no longer exists", map[string]uint{"id": id})
		}
		return err
	}
	if err := r.s.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("undo create of entry %d: %w", id, err)
	}
	r.s.afterWrite(ctx, e.RestaurantID)
	return nil
}

func (r entryReverter) Restore(ctx context.Context, id uint, before []byte) error {
	prev, err := decodeSnapshot(before)
	if err != nil {
		return err
	}
	current, err := r.s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("entry no longer exists", map[string]uint{"id": id})
		}
		return err
	}

	restored := current
	restored.EntryDate = prev.EntryDate
	restored.Revenue = prev.Revenue
	restored.LabourCost = prev.LabourCost
	restored.FoodCost = prev.FoodCost
	restored.Orders = prev.Orders
	restored.Notes = prev.Notes
	derive(&restored)

	if err := r.s.store.SaveEntry(ctx, &restored); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return duplicate(restored.RestaurantID, restored.EntryDate)
		}
		return fmt.Errorf("undo update of entry %d: %w", id, err)
	}
	r.s.afterWrite(ctx, restored.RestaurantID)
	return nil
}

func (r entryReverter) Recreate(ctx context.Context, before []byte) (uint, error) {
	e, err := decodeSnapshot(before)
	if err != nil {
		return 0, err
	}
	e.ID = 0

	if err := r.s.store.CreateEntry(ctx, &e); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return 0, duplicate(e.RestaurantID, e.EntryDate)
		}
		if errors.Is(err, repo.ErrInUse) {
			return 0, apperr.NotFound("restaurant no longer exists", map[string]uint{"restaurant_id": e.RestaurantID})
		}
		return 0, fmt.Errorf("undo delete of entry: %w", err)
	}
	r.s.afterWrite(ctx, e.RestaurantID)
	return e.ID, nil
}
