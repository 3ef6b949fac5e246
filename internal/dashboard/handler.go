package dashboard

import (
	"fmt"

	"restoran-kpi/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// GET /api/dashboard/summary?restaurant_id=1&start_date=2024-01-08&end_date=2024-01-14
// restaurant_id is required for admins and ignored for everyone else.
func SummaryHandler(b *Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}

		var rid *uint
		if raw := c.Query("restaurant_id"); raw != "" {
			var id uint
			if _, err := fmt.Sscan(raw, &id); err != nil || id == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid restaurant_id")
			}
			rid = &id
		}

		summary, err := b.BuildSummary(c.UserContext(), caller, SummaryQuery{
			RestaurantID: rid,
			StartDate:    c.Query("start_date"),
			EndDate:      c.Query("end_date"),
		})
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}
