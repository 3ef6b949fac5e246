package admin

import (
	"errors"
	"strings"

	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/validate"

	"github.com/gofiber/fiber/v2"
)

const timeLayout = "2006-01-02 15:04:05"

type RestaurantResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

type CreateRestaurantRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Address string  `json:"address" validate:"max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

type UpdateRestaurantRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

func newRestaurantResponse(r models.Restaurant) RestaurantResponse {
	return RestaurantResponse{
		ID:        r.ID,
		Name:      r.Name,
		Address:   r.Address,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt.Format(timeLayout),
	}
}

func restaurantID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid restaurant id")
	}
	return uint(id), nil
}

// storeError maps repository sentinels for restaurant writes.
func storeError(err error, id uint) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return apperr.NotFound("restaurant not found", map[string]uint{"id": id})
	case errors.Is(err, repo.ErrDuplicate):
		return apperr.Conflict("a restaurant with this name already exists")
	case errors.Is(err, repo.ErrInUse):
		return apperr.Conflict("restaurant still has KPI entries")
	}
	return err
}

// ----------------------------------------
// RESTAURANT CRUD
// ----------------------------------------

func CreateRestaurantHandler(store repo.RestaurantStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRestaurantRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			return err
		}

		r := models.Restaurant{
			Name:    body.Name,
			Address: strings.TrimSpace(body.Address),
		}
		if body.Phone != nil {
			r.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := store.CreateRestaurant(c.UserContext(), &r); err != nil {
			return storeError(err, 0)
		}
		return c.Status(fiber.StatusCreated).JSON(newRestaurantResponse(r))
	}
}

func ListRestaurantsHandler(store repo.RestaurantStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		restaurants, err := store.ListRestaurants(c.UserContext())
		if err != nil {
			return err
		}

		res := make([]RestaurantResponse, 0, len(restaurants))
		for _, r := range restaurants {
			res = append(res, newRestaurantResponse(r))
		}
		return c.JSON(res)
	}
}

func GetRestaurantHandler(store repo.RestaurantStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := restaurantID(c)
		if err != nil {
			return err
		}

		r, err := store.GetRestaurant(c.UserContext(), id)
		if err != nil {
			return storeError(err, id)
		}
		return c.JSON(newRestaurantResponse(r))
	}
}

// UpdateRestaurantHandler also retires cached summaries, which carry the restaurant name.
func UpdateRestaurantHandler(store repo.RestaurantStore, cache Invalidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := restaurantID(c)
		if err != nil {
			return err
		}

		var body UpdateRestaurantRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}

		ctx := c.UserContext()
		r, err := store.GetRestaurant(ctx, id)
		if err != nil {
			return storeError(err, id)
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperr.Validation("restaurant name cannot be empty", map[string]string{"name": "required"})
			}
			r.Name = name
		}
		if body.Address != nil {
			r.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			r.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := store.SaveRestaurant(ctx, &r); err != nil {
			return storeError(err, id)
		}
		if cache != nil {
			cache.Invalidate(ctx, id)
		}
		return c.JSON(newRestaurantResponse(r))
	}
}

// DeleteRestaurantHandler refuses while the restaurant still has entries.
func DeleteRestaurantHandler(store repo.RestaurantStore, cache Invalidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := restaurantID(c)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		if err := store.DeleteRestaurant(ctx, id); err != nil {
			return storeError(err, id)
		}
		if cache != nil {
			cache.Invalidate(ctx, id)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
