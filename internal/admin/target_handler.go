package admin

import (
	"context"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Invalidator interface {
	Invalidate(ctx context.Context, restaurantID uint)
}

type ThresholdsRequest struct {
	Target   decimal.Decimal `json:"target" validate:"gte=0,lte=100"`
	Warning  decimal.Decimal `json:"warning" validate:"gte=0,lte=100"`
	Critical decimal.Decimal `json:"critical" validate:"gte=0,lte=100"`
}

type TargetsRequest struct {
	LabourCostPercent ThresholdsRequest `json:"labour_cost_percent"`
	FoodCostPercent   ThresholdsRequest `json:"food_cost_percent"`
}

func (t ThresholdsRequest) thresholds() analytics.Thresholds {
	return analytics.Thresholds{
		Target:   t.Target.Round(analytics.Places),
		Warning:  t.Warning.Round(analytics.Places),
		Critical: t.Critical.Round(analytics.Places),
	}
}

// checkOrder enforces target <= warning <= critical.
func checkOrder(field string, t analytics.Thresholds) error {
	if t.Target.GreaterThan(t.Warning) || t.Warning.GreaterThan(t.Critical) {
		return apperr.Validation("thresholds must satisfy target <= warning <= critical",
			map[string]string{field: "order"})
	}
	return nil
}

// GET /api/admin/restaurants/:id/targets
func GetTargetsHandler(store repo.RestaurantStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := restaurantID(c)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		if _, err := store.GetRestaurant(ctx, id); err != nil {
			return storeError(err, id)
		}
		targets, err := store.Targets(ctx, id)
		if err != nil {
			return err
		}
		return c.JSON(targets)
	}
}

// PUT /api/admin/restaurants/:id/targets
func SetTargetsHandler(store repo.RestaurantStore, cache Invalidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := restaurantID(c)
		if err != nil {
			return err
		}

		var body TargetsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}

		targets := analytics.Targets{
			LabourCostPercent: body.LabourCostPercent.thresholds(),
			FoodCostPercent:   body.FoodCostPercent.thresholds(),
		}
		if err := checkOrder("labour_cost_percent", targets.LabourCostPercent); err != nil {
			return err
		}
		if err := checkOrder("food_cost_percent", targets.FoodCostPercent); err != nil {
			return err
		}

		ctx := c.UserContext()
		if _, err := store.GetRestaurant(ctx, id); err != nil {
			return storeError(err, id)
		}
		if err := store.SetTargets(ctx, id, targets); err != nil {
			return err
		}
		if cache != nil {
			cache.Invalidate(ctx, id)
		}
		return c.JSON(targets)
	}
}
