package kpi

import (
	"fmt"

	"restoran-kpi/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func optionalRestaurantID(c *fiber.Ctx) (*uint, error) {
	raw := c.Query("restaurant_id")
	if raw == "" {
		return nil, nil
	}
	var id uint
	if _, err := fmt.Sscan(raw, &id); err != nil || id == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid restaurant_id")
	}
	return &id, nil
}

func entryID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid entry id")
	}
	return uint(id), nil
}

func aggregateQuery(c *fiber.Ctx) (AggregateQuery, error) {
	rid, err := optionalRestaurantID(c)
	if err != nil {
		return AggregateQuery{}, err
	}
	return AggregateQuery{
		RestaurantID: rid,
		StartDate:    c.Query("start_date"),
		EndDate:      c.Query("end_date"),
		Granularity:  c.Query("granularity", "day"),
	}, nil
}

// -------------------------------------------------
// GET /api/kpi/entries?restaurant_id=1&start_date=2024-01-01&end_date=2024-01-31
// -------------------------------------------------
func ListEntriesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}
		rid, err := optionalRestaurantID(c)
		if err != nil {
			return err
		}

		entries, err := svc.ListEntries(c.UserContext(), caller, ListQuery{
			RestaurantID: rid,
			StartDate:    c.Query("start_date"),
			EndDate:      c.Query("end_date"),
		})
		if err != nil {
			return err
		}

		resp := make([]EntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, NewEntryResponse(e))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// GET /api/kpi/entries/:id
// -------------------------------------------------
func GetEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}
		id, err := entryID(c)
		if err != nil {
			return err
		}

		e, err := svc.GetEntry(c.UserContext(), caller, id)
		if err != nil {
			return err
		}
		return c.JSON(NewEntryResponse(e))
	}
}

// -------------------------------------------------
// POST /api/kpi/entries
// -------------------------------------------------
func CreateEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}

		var body CreateEntryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		e, err := svc.CreateEntry(c.UserContext(), caller, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(NewEntryResponse(e))
	}
}

// -------------------------------------------------
// PUT /api/kpi/entries/:id
// -------------------------------------------------
func UpdateEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}
		id, err := entryID(c)
		if err != nil {
			return err
		}

		var body UpdateEntryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		e, err := svc.UpdateEntry(c.UserContext(), caller, id, body)
		if err != nil {
			return err
		}
		return c.JSON(NewEntryResponse(e))
	}
}

// -------------------------------------------------
// DELETE /api/kpi/entries/:id
// -------------------------------------------------
func DeleteEntryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}
		id, err := entryID(c)
		if err != nil {
			return err
		}

		if err := svc.DeleteEntry(c.UserContext(), caller, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------------------------------
// GET /api/kpi/aggregate?restaurant_id=1&start_date=2024-01-01&end_date=2024-03-31&granularity=week
// -------------------------------------------------
func AggregateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}
		q, err := aggregateQuery(c)
		if err != nil {
			return err
		}

		buckets, err := svc.Aggregate(c.UserContext(), caller, q)
		if err != nil {
			return err
		}
		return c.JSON(buckets)
	}
}

// -------------------------------------------------
// GET /api/kpi/aggregate/export  (same query as /aggregate)
// -------------------------------------------------
func ExportAggregateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}
		q, err := aggregateQuery(c)
		if err != nil {
			return err
		}

		data, err := svc.ExportAggregate(c.UserContext(), caller, q)
		if err != nil {
			return err
		}

		c.Attachment(fmt.Sprintf("kpi-%s-%s.xlsx", q.StartDate, q.EndDate))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return c.Send(data)
	}
}
