package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on postgres. The *gorm.DB must be opened with
// TranslateError so unique and foreign-key violations are recognizable.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse
	default:
		return err
	}
}

// ----------------------------------------
// Entries
// ----------------------------------------

func (s *GormStore) ListEntries(ctx context.Context, f EntryFilter) ([]models.KPIEntry, error) {
	dbq := s.db.WithContext(ctx).Model(&models.KPIEntry{})
	if f.RestaurantID != nil {
		dbq = dbq.Where("restaurant_id = ?", *f.RestaurantID)
	}
	if f.StartDate != nil {
		dbq = dbq.Where("entry_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		dbq = dbq.Where("entry_date <= ?", *f.EndDate)
	}

	var entries []models.KPIEntry
	if err := dbq.Order("entry_date DESC, restaurant_id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *GormStore) GetEntry(ctx context.Context, id uint) (models.KPIEntry, error) {
	var e models.KPIEntry
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return models.KPIEntry{}, translate(err)
	}
	return e, nil
}

func (s *GormStore) FindEntry(ctx context.Context, restaurantID uint, date time.Time) (models.KPIEntry, error) {
	var e models.KPIEntry
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND entry_date = ?", restaurantID, analytics.DateOf(date)).
		First(&e).Error
	if err != nil {
		return models.KPIEntry{}, translate(err)
	}
	return e, nil
}

func (s *GormStore) CreateEntry(ctx context.Context, e *models.KPIEntry) error {
	e.EntryDate = analytics.DateOf(e.EntryDate)
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error)
}

func (s *GormStore) SaveEntry(ctx context.Context, e *models.KPIEntry) error {
	e.EntryDate = analytics.DateOf(e.EntryDate)
	e.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.KPIEntry{}).Where("id = ?", e.ID).Updates(map[string]interface{}{
		"restaurant_id":       e.RestaurantID,
		"entry_date":          e.EntryDate,
		"revenue":             e.Revenue,
		"labour_cost":         e.LabourCost,
		"food_cost":           e.FoodCost,
		"orders":              e.Orders,
		"labour_cost_percent": e.LabourCostPercent,
		"food_cost_percent":   e.FoodCostPercent,
		"avg_ticket":          e.AvgTicket,
		"notes":               e.Notes,
		"updated_at":          e.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteEntry(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.KPIEntry{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// sql bucket expression per granularity; postgres weeks start on Monday
var periodExpr = map[analytics.Granularity]string{
	analytics.Day:   "e.entry_date",
	analytics.Week:  "date_trunc('week', e.entry_date)::date",
	analytics.Month: "date_trunc('month', e.entry_date)::date",
}

type sumsRow struct {
	Revenue    decimal.Decimal `gorm:"column:revenue"`
	LabourCost decimal.Decimal `gorm:"column:labour_cost"`
	FoodCost   decimal.Decimal `gorm:"column:food_cost"`
	Orders     int64           `gorm:"column:orders"`
	Entries    int             `gorm:"column:entries"`
}

func (r sumsRow) sums() analytics.Sums {
	return analytics.Sums{
		Revenue:    r.Revenue,
		LabourCost: r.LabourCost,
		FoodCost:   r.FoodCost,
		Orders:     r.Orders,
		Entries:    r.Entries,
	}
}

func (s *GormStore) AggregateByPeriod(ctx context.Context, restaurantID *uint, start, end time.Time, g analytics.Granularity) ([]PeriodRow, error) {
	expr, ok := periodExpr[g]
	if !ok {
		return nil, fmt.Errorf("unknown granularity %q", g)
	}

	type row struct {
		Period         time.Time       `gorm:"column:period"`
		RestaurantID   uint            `gorm:"column:restaurant_id"`
		RestaurantName string          `gorm:"column:restaurant_name"`
		Revenue        decimal.Decimal `gorm:"column:revenue"`
		LabourCost     decimal.Decimal `gorm:"column:labour_cost"`
		FoodCost       decimal.Decimal `gorm:"column:food_cost"`
		Orders         int64           `gorm:"column:orders"`
		Entries        int             `gorm:"column:entries"`
	}

	sql := `
		SELECT ` + expr + ` AS period,
			   e.restaurant_id,
			   COALESCE(r.name, '') AS restaurant_name,
			   COALESCE(SUM(e.revenue), 0) AS revenue,
			   COALESCE(SUM(e.labour_cost), 0) AS labour_cost,
			   COALESCE(SUM(e.food_cost), 0) AS food_cost,
			   COALESCE(SUM(e.orders), 0) AS orders,
			   COUNT(*) AS entries
		FROM kpi_entries e
		LEFT JOIN restaurants r ON r.id = e.restaurant_id
		WHERE e.entry_date >= ? AND e.entry_date <= ?`
	args := []interface{}{analytics.DateOf(start), analytics.DateOf(end)}
	if restaurantID != nil {
		sql += ` AND e.restaurant_id = ?`
		args = append(args, *restaurantID)
	}
	sql += `
		GROUP BY 1, e.restaurant_id, r.name
		ORDER BY 1 DESC, e.restaurant_id ASC`

	var rows []row
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}

	out := make([]PeriodRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, PeriodRow{
			Period:         analytics.DateOf(r.Period),
			RestaurantID:   r.RestaurantID,
			RestaurantName: r.RestaurantName,
			Sums: sumsRow{
				Revenue:    r.Revenue,
				LabourCost: r.LabourCost,
				FoodCost:   r.FoodCost,
				Orders:     r.Orders,
				Entries:    r.Entries,
			}.sums(),
		})
	}
	return out, nil
}

func (s *GormStore) PeriodTotals(ctx context.Context, restaurantID uint, start, end time.Time) (analytics.Sums, bool, error) {
	var r sumsRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(revenue), 0) AS revenue,
			   COALESCE(SUM(labour_cost), 0) AS labour_cost,
			   COALESCE(SUM(food_cost), 0) AS food_cost,
			   COALESCE(SUM(orders), 0) AS orders,
			   COUNT(*) AS entries
		FROM kpi_entries
		WHERE restaurant_id = ? AND entry_date >= ? AND entry_date <= ?`,
		restaurantID, analytics.DateOf(start), analytics.DateOf(end)).Scan(&r).Error
	if err != nil {
		return analytics.Sums{}, false, fmt.Errorf("period totals: %w", err)
	}
	return r.sums(), r.Entries > 0, nil
}

func (s *GormStore) DailySeries(ctx context.Context, restaurantID uint, start, end time.Time) ([]models.KPIEntry, error) {
	var entries []models.KPIEntry
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND entry_date >= ? AND entry_date <= ?", restaurantID, analytics.DateOf(start), analytics.DateOf(end)).
		Order("entry_date ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}
	return entries, nil
}

// ----------------------------------------
// Restaurants & targets
// ----------------------------------------

func (s *GormStore) CreateRestaurant(ctx context.Context, r *models.Restaurant) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error)
}

func (s *GormStore) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *GormStore) GetRestaurant(ctx context.Context, id uint) (models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return models.Restaurant{}, translate(err)
	}
	return r, nil
}

func (s *GormStore) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	r.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"name":       r.Name,
		"address":    r.Address,
		"phone":      r.Phone,
		"updated_at": r.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteRestaurant(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.KPIEntry{}).Where("restaurant_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrInUse
		}
		if err := tx.Delete(&models.Target{}, "restaurant_id = ?", id).Error; err != nil {
			return translate(err)
		}
		res := tx.Delete(&models.Restaurant{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) RestaurantName(ctx context.Context, id uint) (string, bool, error) {
	r, err := s.GetRestaurant(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return r.Name, true, nil
}

func (s *GormStore) Targets(ctx context.Context, restaurantID uint) (analytics.Targets, error) {
	var t models.Target
	err := s.db.WithContext(ctx).First(&t, "restaurant_id = ?", restaurantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return analytics.DefaultTargets(), nil
	}
	if err != nil {
		return analytics.Targets{}, fmt.Errorf("load targets: %w", err)
	}
	return analytics.Targets{
		LabourCostPercent: analytics.Thresholds{Target: t.LabourTarget, Warning: t.LabourWarning, Critical: t.LabourCritical},
		FoodCostPercent:   analytics.Thresholds{Target: t.FoodTarget, Warning: t.FoodWarning, Critical: t.FoodCritical},
	}, nil
}

func (s *GormStore) SetTargets(ctx context.Context, restaurantID uint, t analytics.Targets) error {
	row := models.Target{
		RestaurantID:   restaurantID,
		LabourTarget:   t.LabourCostPercent.Target,
		LabourWarning:  t.LabourCostPercent.Warning,
		LabourCritical: t.LabourCostPercent.Critical,
		FoodTarget:     t.FoodCostPercent.Target,
		FoodWarning:    t.FoodCostPercent.Warning,
		FoodCritical:   t.FoodCostPercent.Critical,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "restaurant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"labour_target", "labour_warning", "labour_critical",
			"food_target", "food_warning", "food_critical", "updated_at",
		}),
	}).Create(&row).Error
	return translate(err)
}

// ----------------------------------------
// Users
// ----------------------------------------

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

// bootstrapLockKey serializes first-admin registration across processes.
const bootstrapLockKey = 7214001

func (s *GormStore) CreateFirstAdmin(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", bootstrapLockKey).Error; err != nil {
			return fmt.Errorf("bootstrap lock: %w", err)
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if count > 0 {
			return ErrAdminExists
		}
		return translate(tx.Omit(clause.Associations).Create(u).Error)
	})
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}

func (s *GormStore) ListUsers(ctx context.Context, restaurantID *uint) ([]models.User, error) {
	dbq := s.db.WithContext(ctx).Model(&models.User{})
	if restaurantID != nil {
		dbq = dbq.Where("restaurant_id = ?", *restaurantID)
	}
	var users []models.User
	if err := dbq.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}


// ----------------------------------------
// Audit logs
// ----------------------------------------

func (s *GormStore) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate(s.db.WithContext(ctx).Create(l).Error)
}

func (s *GormStore) ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	dbq := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.RestaurantID != nil {
		dbq = dbq.Where("restaurant_id = ?", *f.RestaurantID)
	}
	if f.UserID != nil {
		dbq = dbq.Where("user_id = ?", *f.UserID)
	}
	if f.EntityType != "" {
		dbq = dbq.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != nil {
		dbq = dbq.Where("entity_id = ?", *f.EntityID)
	}

	var logs []models.AuditLog
	if err := dbq.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

func (s *GormStore) GetAuditLog(ctx context.Context, id uint) (models.AuditLog, error) {
	var l models.AuditLog
	if err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return models.AuditLog{}, translate(err)
	}
	return l, nil
}

func (s *GormStore) SaveAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate(s.db.WithContext(ctx).Save(l).Error)
}
