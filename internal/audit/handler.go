package audit

import (
	"restoran-kpi/internal/auth"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"

	"github.com/gofiber/fiber/v2"
)

const timeLayout = "2006-01-02 15:04:05"

type AuditLogResponse struct {
	ID           uint               `json:"id"`
	CreatedAt    string             `json:"created_at"`
	RestaurantID *uint              `json:"restaurant_id"`
	UserID       uint               `json:"user_id"`
	UserName     string             `json:"user_name"`
	EntityType   string             `json:"entity_type"`
	EntityID     uint               `json:"entity_id"`
	Action       models.AuditAction `json:"action"`
	Description  string             `json:"description"`
	IsUndone     bool               `json:"is_undone"`
	UndoneBy     *uint              `json:"undone_by"`
	UndoneAt     *string            `json:"undone_at"`
}

func newAuditLogResponse(l models.AuditLog) AuditLogResponse {
	var undoneAt *string
	if l.UndoneAt != nil {
		formatted := l.UndoneAt.Format(timeLayout)
		undoneAt = &formatted
	}
	return AuditLogResponse{
		ID:           l.ID,
		CreatedAt:    l.CreatedAt.Format(timeLayout),
		RestaurantID: l.RestaurantID,
		UserID:       l.UserID,
		UserName:     l.UserName,
		EntityType:   l.EntityType,
		EntityID:     l.EntityID,
		Action:       l.Action,
		Description:  l.Description,
		IsUndone:     l.IsUndone,
		UndoneBy:     l.UndoneBy,
		UndoneAt:     undoneAt,
	}
}

func optionalUint(c *fiber.Ctx, key string) *uint {
	v := c.QueryInt(key, 0)
	if v <= 0 {
		return nil
	}
	u := uint(v)
	return &u
}

// GET /api/audit-logs?restaurant_id=1&entity_type=kpi_entry&entity_id=3&user_id=2
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}

		logs, err := svc.List(c.UserContext(), caller, repo.AuditFilter{
			RestaurantID: optionalUint(c, "restaurant_id"),
			UserID:       optionalUint(c, "user_id"),
			EntityType:   c.Query("entity_type"),
			EntityID:     optionalUint(c, "entity_id"),
		})
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, newAuditLogResponse(l))
		}
		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid log id")
		}

		caller, err := auth.CallerFrom(c)
		if err != nil {
			return err
		}

		undoLog, err := svc.Undo(c.UserContext(), caller, uint(id))
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message": "change undone",
			"log":     newAuditLogResponse(undoLog),
		})
	}
}
