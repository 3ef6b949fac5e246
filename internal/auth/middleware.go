package auth

import (
	"strings"

	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/scope"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey       = "user_id"
	CtxUserRoleKey     = "user_role"
	CtxRestaurantIDKey = "restaurant_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxRestaurantIDKey, claims.RestaurantID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "missing role")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
	}
}

// CallerFrom reads the authenticated caller placed in the context by JWTMiddleware.
func CallerFrom(c *fiber.Ctx) (scope.Caller, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return scope.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return scope.Caller{}, fiber.NewError(fiber.StatusForbidden, "missing role")
	}
	restaurantID, _ := c.Locals(CtxRestaurantIDKey).(*uint)

	return scope.Caller{UserID: userID, Role: role, RestaurantID: restaurantID}, nil
}
