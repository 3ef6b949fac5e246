// Package server builds the fiber application and its routes.
package server

import (
	"errors"
	"strings"
	"time"

	"restoran-kpi/internal/admin"
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/audit"
	"restoran-kpi/internal/auth"
	"restoran-kpi/internal/cache"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/dashboard"
	"restoran-kpi/internal/kpi"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the routes are built from. Cache may be nil.
type Deps struct {
	Config  *config.Config
	Store   repo.Store
	Cache   *cache.Cache
	Log     *logrus.Logger
	Limiter *auth.LoginLimiter
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.ErrorHandler(d.Log),
	})

	app.Use(recover.New())
	app.Use(RequestLogger(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(d.Config.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	auditSvc := audit.NewService(d.Store, d.Log)
	kpiSvc := kpi.NewService(d.Store, auditSvc, d.Cache, d.Log)
	auditSvc.Register(models.EntityKPIEntry, kpiSvc.Reverter())
	builder := dashboard.NewBuilder(d.Store, d.Cache, d.Log)

	limiter := d.Limiter
	if limiter == nil {
		limiter = auth.NewLoginLimiter(d.Config.LoginRatePerSecond, d.Config.LoginRateBurst)
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(d.Store))
	api.Post("/auth/login", limiter.Middleware(), auth.LoginHandler(d.Config, d.Store))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.Config))

	protected.Get("/auth/me", auth.MeHandler(d.Store))

	writers := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	// KPI entries
	protected.Get("/kpi/entries", kpi.ListEntriesHandler(kpiSvc))
	protected.Get("/kpi/entries/:id", kpi.GetEntryHandler(kpiSvc))
	protected.Post("/kpi/entries", writers, kpi.CreateEntryHandler(kpiSvc))
	protected.Put("/kpi/entries/:id", writers, kpi.UpdateEntryHandler(kpiSvc))
	protected.Delete("/kpi/entries/:id", auth.RequireRole(models.RoleAdmin), kpi.DeleteEntryHandler(kpiSvc))

	// Aggregation
	protected.Get("/kpi/aggregate", kpi.AggregateHandler(kpiSvc))
	protected.Get("/kpi/aggregate/export", kpi.ExportAggregateHandler(kpiSvc))

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler(builder))

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(auditSvc))
	protected.Post("/audit-logs/:id/undo", writers, audit.UndoAuditLogHandler(auditSvc))

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/restaurants", admin.CreateRestaurantHandler(d.Store))
	adminRoutes.Get("/restaurants", admin.ListRestaurantsHandler(d.Store))
	adminRoutes.Get("/restaurants/:id", admin.GetRestaurantHandler(d.Store))
	adminRoutes.Put("/restaurants/:id", admin.UpdateRestaurantHandler(d.Store, d.Cache))
	adminRoutes.Delete("/restaurants/:id", admin.DeleteRestaurantHandler(d.Store, d.Cache))
	adminRoutes.Get("/restaurants/:id/targets", admin.GetTargetsHandler(d.Store))
	adminRoutes.Put("/restaurants/:id/targets", admin.SetTargetsHandler(d.Store, d.Cache))

	adminRoutes.Post("/users", admin.CreateUserHandler(d.Store))
	adminRoutes.Get("/users", admin.ListUsersHandler(d.Store))

	return app
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// the error handler has not run yet
			var fe *fiber.Error
			if kind, ok := apperr.KindOf(err); ok {
				status = apperr.Status(kind)
			} else if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := logrus.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
		}
		if uid, ok := c.Locals(auth.CtxUserIDKey).(uint); ok {
			fields["user_id"] = uid
		}

		entry := log.WithFields(fields)
		switch {
		case status >= fiber.StatusInternalServerError:
			entry.Error("request failed")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
		return err
	}
}
