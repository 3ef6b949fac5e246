package admin

import (
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/auth"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type CreateUserRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=8"`
	Role         models.UserRole `json:"role" validate:"required,oneof=admin manager viewer"`
	RestaurantID *uint           `json:"restaurant_id"`
}

type UserStore interface {
	repo.UserStore
	repo.RestaurantStore
}

// ----------------------------------------
// USERS
// POST /api/admin/users
// ----------------------------------------

// CreateUserHandler provisions a user. Managers and viewers must be bound to
// an existing restaurant; admins must not be.
func CreateUserHandler(store UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Email = auth.NormalizeEmail(body.Email)
		if err := validate.Struct(body); err != nil {
			return err
		}

		ctx := c.UserContext()
		switch {
		case body.Role == models.RoleAdmin && body.RestaurantID != nil:
			return apperr.Validation("admins are not bound to a restaurant", map[string]string{"restaurant_id": "excluded_if"})
		case body.Role != models.RoleAdmin && body.RestaurantID == nil:
			return apperr.Validation("restaurant_id is required for this role", map[string]string{"restaurant_id": "required_unless"})
		}
		if body.RestaurantID != nil {
			if _, err := store.GetRestaurant(ctx, *body.RestaurantID); err != nil {
				return storeError(err, *body.RestaurantID)
			}
		}

		user, err := auth.CreateUser(ctx, store, body.Name, body.Email, body.Password, body.Role, body.RestaurantID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(auth.NewUserResponse(user))
	}
}

// GET /api/admin/users?restaurant_id=1
func ListUsersHandler(store repo.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rid *uint
		if v := c.QueryInt("restaurant_id", 0); v > 0 {
			id := uint(v)
			rid = &id
		}

		users, err := store.ListUsers(c.UserContext(), rid)
		if err != nil {
			return err
		}

		res := make([]auth.UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, auth.NewUserResponse(u))
		}
		return c.JSON(res)
	}
}
