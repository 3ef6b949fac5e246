// Package repo is the persistence boundary: the Entry Store and the
// restaurant, user and audit records around it.
package repo

import (
	"context"
	"errors"
	"time"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when a record cannot be removed because others reference it.
	ErrInUse = errors.New("record in use")
	// ErrAdminExists is returned by CreateFirstAdmin once any admin is stored.
	ErrAdminExists = errors.New("admin already exists")
)

// EntryFilter narrows entry listings. Nil fields do not filter.
type EntryFilter struct {
	RestaurantID *uint
	StartDate    *time.Time
	EndDate      *time.Time
}

// PeriodRow is one summed (period, restaurant) group.
type PeriodRow struct {
	Period         time.Time
	RestaurantID   uint
	RestaurantName string
	analytics.Sums
}

type EntryStore interface {
	// ListEntries returns matching entries, most recent date first.
	ListEntries(ctx context.Context, f EntryFilter) ([]models.KPIEntry, error)
	GetEntry(ctx context.Context, id uint) (models.KPIEntry, error)
	FindEntry(ctx context.Context, restaurantID uint, date time.Time) (models.KPIEntry, error)
	// CreateEntry fails with ErrDuplicate when (restaurant, date) is taken.
	CreateEntry(ctx context.Context, e *models.KPIEntry) error
	SaveEntry(ctx context.Context, e *models.KPIEntry) error
	DeleteEntry(ctx context.Context, id uint) error

	// AggregateByPeriod groups entries of [start, end] by truncated period and
	// restaurant. Rows are ordered by period descending, then restaurant id.
	AggregateByPeriod(ctx context.Context, restaurantID *uint, start, end time.Time, g analytics.Granularity) ([]PeriodRow, error)
	// PeriodTotals sums one restaurant's entries of [start, end]. found is false
	// when there are none.
	PeriodTotals(ctx context.Context, restaurantID uint, start, end time.Time) (sums analytics.Sums, found bool, err error)
	// DailySeries returns one restaurant's entries of [start, end], oldest first.
	DailySeries(ctx context.Context, restaurantID uint, start, end time.Time) ([]models.KPIEntry, error)
}

type RestaurantStore interface {
	CreateRestaurant(ctx context.Context, r *models.Restaurant) error
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	GetRestaurant(ctx context.Context, id uint) (models.Restaurant, error)
	SaveRestaurant(ctx context.Context, r *models.Restaurant) error
	DeleteRestaurant(ctx context.Context, id uint) error
	// RestaurantName returns ok=false when the restaurant does not exist.
	RestaurantName(ctx context.Context, id uint) (name string, ok bool, err error)

	// Targets returns the restaurant's thresholds, or the defaults when unset.
	Targets(ctx context.Context, restaurantID uint) (analytics.Targets, error)
	SetTargets(ctx context.Context, restaurantID uint, t analytics.Targets) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, restaurantID *uint) ([]models.User, error)
	// CreateFirstAdmin stores u only if no admin exists yet; the check and the
	// insert are atomic.
	CreateFirstAdmin(ctx context.Context, u *models.User) error
}

type AuditFilter struct {
	RestaurantID *uint
	UserID       *uint
	EntityType   string
	EntityID     *uint
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
	// ListAuditLogs returns matching logs, newest first.
	ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error)
	GetAuditLog(ctx context.Context, id uint) (models.AuditLog, error)
	SaveAuditLog(ctx context.Context, l *models.AuditLog) error
}

type Store interface {
	EntryStore
	RestaurantStore
	UserStore
	AuditStore
}
