package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"restoran-kpi/internal/analytics"
	"restoran-kpi/internal/models"
)

// MemoryStore is an in-memory implementation of Store. It keeps the same
// uniqueness rules as the database so services behave identically on it.
type MemoryStore struct {
	mu sync.RWMutex

	entries     []models.KPIEntry
	restaurants []models.Restaurant
	targets     map[uint]analytics.Targets
	users       []models.User
	auditLogs   []models.AuditLog

	nextEntryID      uint
	nextRestaurantID uint
	nextUserID       uint
	nextAuditID      uint

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		targets:          map[uint]analytics.Targets{},
		nextEntryID:      1,
		nextRestaurantID: 1,
		nextUserID:       1,
		nextAuditID:      1,
		now:              time.Now,
	}
}

func inRange(d time.Time, start, end *time.Time) bool {
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}

// ----------------------------------------
// Entries
// ----------------------------------------

func (s *MemoryStore) ListEntries(_ context.Context, f EntryFilter) ([]models.KPIEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.KPIEntry{}
	for _, e := range s.entries {
		if f.RestaurantID != nil && e.RestaurantID != *f.RestaurantID {
			continue
		}
		if !inRange(e.EntryDate, f.StartDate, f.EndDate) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].RestaurantID < out[j].RestaurantID
	})
	return out, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, id uint) (models.KPIEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.KPIEntry{}, ErrNotFound
}

func (s *MemoryStore) FindEntry(_ context.Context, restaurantID uint, date time.Time) (models.KPIEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	date = analytics.DateOf(date)
	for _, e := range s.entries {
		if e.RestaurantID == restaurantID && e.EntryDate.Equal(date) {
			return e, nil
		}
	}
	return models.KPIEntry{}, ErrNotFound
}

func (s *MemoryStore) taken(restaurantID uint, date time.Time, exceptID uint) bool {
	for _, e := range s.entries {
		if e.ID != exceptID && e.RestaurantID == restaurantID && e.EntryDate.Equal(date) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateEntry(_ context.Context, e *models.KPIEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.EntryDate = analytics.DateOf(e.EntryDate)
	if s.taken(e.RestaurantID, e.EntryDate, 0) {
		return ErrDuplicate
	}

	now := s.now()
	e.ID = s.nextEntryID
	s.nextEntryID++
	e.CreatedAt, e.UpdatedAt = now, now
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemoryStore) SaveEntry(_ context.Context, e *models.KPIEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.EntryDate = analytics.DateOf(e.EntryDate)
	for i := range s.entries {
		if s.entries[i].ID != e.ID {
			continue
		}
		if s.taken(e.RestaurantID, e.EntryDate, e.ID) {
			return ErrDuplicate
		}
		e.CreatedAt = s.entries[i].CreatedAt
		e.UpdatedAt = s.now()
		s.entries[i] = *e
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteEntry(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) AggregateByPeriod(_ context.Context, restaurantID *uint, start, end time.Time, g analytics.Granularity) ([]PeriodRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		period     time.Time
		restaurant uint
	}
	groups := map[key]*PeriodRow{}
	for _, e := range s.entries {
		if restaurantID != nil && e.RestaurantID != *restaurantID {
			continue
		}
		if !inRange(e.EntryDate, &start, &end) {
			continue
		}
		k := key{analytics.TruncatePeriod(e.EntryDate, g), e.RestaurantID}
		row, ok := groups[k]
		if !ok {
			row = &PeriodRow{Period: k.period, RestaurantID: k.restaurant, RestaurantName: s.restaurantName(k.restaurant)}
			groups[k] = row
		}
		row.Add(e.Revenue, e.LabourCost, e.FoodCost, e.Orders)
	}

	rows := make([]PeriodRow, 0, len(groups))
	for _, r := range groups {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Period.Equal(rows[j].Period) {
			return rows[i].Period.After(rows[j].Period)
		}
		return rows[i].RestaurantID < rows[j].RestaurantID
	})
	return rows, nil
}

func (s *MemoryStore) PeriodTotals(_ context.Context, restaurantID uint, start, end time.Time) (analytics.Sums, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sums analytics.Sums
	for _, e := range s.entries {
		if e.RestaurantID == restaurantID && inRange(e.EntryDate, &start, &end) {
			sums.Add(e.Revenue, e.LabourCost, e.FoodCost, e.Orders)
		}
	}
	return sums, sums.Entries > 0, nil
}

func (s *MemoryStore) DailySeries(ctx context.Context, restaurantID uint, start, end time.Time) ([]models.KPIEntry, error) {
	entries, err := s.ListEntries(ctx, EntryFilter{RestaurantID: &restaurantID, StartDate: &start, EndDate: &end})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// ----------------------------------------
// Restaurants & targets
// ----------------------------------------

func (s *MemoryStore) restaurantName(id uint) string {
	for _, r := range s.restaurants {
		if r.ID == id {
			return r.Name
		}
	}
	return ""
}

func (s *MemoryStore) nameTaken(name string, exceptID uint) bool {
	for _, r := range s.restaurants {
		if r.ID != exceptID && strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateRestaurant(_ context.Context, r *models.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(r.Name, 0) {
		return ErrDuplicate
	}
	now := s.now()
	r.ID = s.nextRestaurantID
	s.nextRestaurantID++
	r.CreatedAt, r.UpdatedAt = now, now
	s.restaurants = append(s.restaurants, *r)
	return nil
}

func (s *MemoryStore) ListRestaurants(_ context.Context) ([]models.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Restaurant, len(s.restaurants))
	copy(out, s.restaurants)
	return out, nil
}

func (s *MemoryStore) GetRestaurant(_ context.Context, id uint) (models.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.restaurants {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Restaurant{}, ErrNotFound
}

func (s *MemoryStore) SaveRestaurant(_ context.Context, r *models.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.restaurants {
		if s.restaurants[i].ID != r.ID {
			continue
		}
		if s.nameTaken(r.Name, r.ID) {
			return ErrDuplicate
		}
		r.CreatedAt = s.restaurants[i].CreatedAt
		r.UpdatedAt = s.now()
		s.restaurants[i] = *r
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteRestaurant(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.RestaurantID == id {
			return ErrInUse
		}
	}
	for i, r := range s.restaurants {
		if r.ID == id {
			s.restaurants = append(s.restaurants[:i], s.restaurants[i+1:]...)
			delete(s.targets, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) RestaurantName(_ context.Context, id uint) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.restaurants {
		if r.ID == id {
			return r.Name, true, nil
		}
	}
	return "", false, nil
}

func (s *MemoryStore) Targets(_ context.Context, restaurantID uint) (analytics.Targets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.targets[restaurantID]; ok {
		return t, nil
	}
	return analytics.DefaultTargets(), nil
}

func (s *MemoryStore) SetTargets(_ context.Context, restaurantID uint, t analytics.Targets) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.targets[restaurantID] = t
	return nil
}

// ----------------------------------------
// Users
// ----------------------------------------

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUser(u)
}

func (s *MemoryStore) CreateFirstAdmin(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Role == models.RoleAdmin {
			return ErrAdminExists
		}
	}
	return s.insertUser(u)
}

// insertUser must be called with mu held.
func (s *MemoryStore) insertUser(u *models.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	now := s.now()
	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt, u.UpdatedAt = now, now
	s.users = append(s.users, *u)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, restaurantID *uint) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.User{}
	for _, u := range s.users {
		if restaurantID != nil && (u.RestaurantID == nil || *u.RestaurantID != *restaurantID) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}


// ----------------------------------------
// Audit logs
// ----------------------------------------

func (s *MemoryStore) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = s.nextAuditID
	s.nextAuditID++
	l.CreatedAt = s.now()
	s.auditLogs = append(s.auditLogs, *l)
	return nil
}

func (s *MemoryStore) ListAuditLogs(_ context.Context, f AuditFilter) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.AuditLog{}
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		l := s.auditLogs[i]
		if f.RestaurantID != nil && (l.RestaurantID == nil || *l.RestaurantID != *f.RestaurantID) {
			continue
		}
		if f.UserID != nil && l.UserID != *f.UserID {
			continue
		}
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != nil && l.EntityID != *f.EntityID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *MemoryStore) GetAuditLog(_ context.Context, id uint) (models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.auditLogs {
		if l.ID == id {
			return l, nil
		}
	}
	return models.AuditLog{}, ErrNotFound
}

func (s *MemoryStore) SaveAuditLog(_ context.Context, l *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.auditLogs {
		if s.auditLogs[i].ID == l.ID {
			s.auditLogs[i] = *l
			return nil
		}
	}
	return ErrNotFound
}
