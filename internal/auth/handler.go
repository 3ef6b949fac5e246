package auth

import (
	"context"
	"errors"
	"strings"

	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/validate"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterAdminRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         models.UserRole `json:"role"`
	RestaurantID *uint           `json:"restaurant_id"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		RestaurantID: u.RestaurantID,
	}
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RegisterAdminHandler bootstraps the first admin. It refuses once any admin exists.
func RegisterAdminHandler(store repo.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Email = NormalizeEmail(body.Email)
		if err := validate.Struct(body); err != nil {
			return err
		}

		user, err := newUser(body.Name, body.Email, body.Password, models.RoleAdmin, nil)
		if err != nil {
			return err
		}
		if err := store.CreateFirstAdmin(c.UserContext(), &user); err != nil {
			switch {
			case errors.Is(err, repo.ErrAdminExists):
				return apperr.Forbidden("an admin already exists")
			case errors.Is(err, repo.ErrDuplicate):
				return apperr.Conflict("email already registered", map[string]string{"email": user.Email})
			}
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(NewUserResponse(user))
	}
}

// CreateUser hashes password and stores a new user, mapping a taken email to a conflict.
func CreateUser(ctx context.Context, store repo.UserStore, name, email, password string, role models.UserRole, restaurantID *uint) (models.User, error) {
	user, err := newUser(name, email, password, role, restaurantID)
	if err != nil {
		return models.User{}, err
	}
	if err := store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return models.User{}, apperr.Conflict("email already registered", map[string]string{"email": user.Email})
		}
		return models.User{}, err
	}
	return user, nil
}

func newUser(name, email, password string, role models.UserRole, restaurantID *uint) (models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		RestaurantID: restaurantID,
	}, nil
}

func LoginHandler(cfg *config.Config, store repo.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}

		user, err := store.GetUserByEmail(c.UserContext(), NormalizeEmail(body.Email))
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTTTL, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  NewUserResponse(user),
		})
	}
}

func MeHandler(store repo.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := CallerFrom(c)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		user, err := store.GetUser(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "user no longer exists")
			}
			return err
		}

		response := fiber.Map{
			"user": NewUserResponse(user),
		}

		if user.RestaurantID != nil {
			if r, err := store.GetRestaurant(ctx, *user.RestaurantID); err == nil {
				response["restaurant"] = fiber.Map{
					"id":      r.ID,
					"name":    r.Name,
					"address": r.Address,
					"phone":   r.Phone,
				}
			}
		}

		return c.JSON(response)
	}
}
