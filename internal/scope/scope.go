// Package scope decides which restaurant a caller may read or write.
// Each role has its own Strategy; handlers and services never branch on
// the role themselves.
package scope

import (
	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/models"
)

// Caller is the authenticated user as carried by the request token.
type Caller struct {
	UserID       uint
	Role         models.UserRole
	RestaurantID *uint
}

type Strategy interface {
	// Read resolves the restaurant for aggregate and dashboard reads.
	// A nil result means every restaurant.
	Read(c Caller, requested *uint) (*uint, error)
	// List resolves the restaurant filter for entry listing and single-entry reads.
	List(c Caller, requested *uint) (*uint, error)
	// Write authorizes creating or updating an entry of target.
	Write(c Caller, target uint) error
	// Delete authorizes removing an entry.
	Delete(c Caller) error
}

var strategies = map[models.UserRole]Strategy{
	models.RoleAdmin:   adminScope{},
	models.RoleManager: managerScope{},
	models.RoleViewer:  viewerScope{},
}

// For returns the strategy registered for role.
func For(role models.UserRole) (Strategy, error) {
	s, ok := strategies[role]
	if !ok {
		return nil, apperr.Forbidden("unknown role", map[string]string{"role": string(role)})
	}
	return s, nil
}

func ResolveRead(c Caller, requested *uint) (*uint, error) {
	s, err := For(c.Role)
	if err != nil {
		return nil, err
	}
	return s.Read(c, requested)
}

func ResolveList(c Caller, requested *uint) (*uint, error) {
	s, err := For(c.Role)
	if err != nil {
		return nil, err
	}
	return s.List(c, requested)
}

func AuthorizeWrite(c Caller, target uint) error {
	s, err := For(c.Role)
	if err != nil {
		return err
	}
	return s.Write(c, target)
}

func AuthorizeDelete(c Caller) error {
	s, err := For(c.Role)
	if err != nil {
		return err
	}
	return s.Delete(c)
}

type adminScope struct{}

func (adminScope) Read(_ Caller, requested *uint) (*uint, error) { return requested, nil }
func (adminScope) List(_ Caller, requested *uint) (*uint, error) { return requested, nil }
func (adminScope) Write(Caller, uint) error                      { return nil }
func (adminScope) Delete(Caller) error                           { return nil }

// restaurantBound pins reads to the caller's own restaurant, ignoring the request.
type restaurantBound struct{}

func (restaurantBound) own(c Caller) (*uint, error) {
	if c.RestaurantID == nil {
		return nil, apperr.Forbidden("no restaurant assigned to this user")
	}
	id := *c.RestaurantID
	return &id, nil
}

func (b restaurantBound) Read(c Caller, _ *uint) (*uint, error) { return b.own(c) }
func (b restaurantBound) List(c Caller, _ *uint) (*uint, error) { return b.own(c) }

func (restaurantBound) Delete(Caller) error {
	return apperr.Forbidden("only admins can delete entries")
}

type managerScope struct{ restaurantBound }

func (m managerScope) Write(c Caller, target uint) error {
	own, err := m.own(c)
	if err != nil {
		return err
	}
	if *own != target {
		return apperr.Forbidden("entries can only be written for your own restaurant",
			map[string]uint{"restaurant_id": target})
	}
	return nil
}

type viewerScope struct{ restaurantBound }

func (viewerScope) Write(Caller, uint) error {
	return apperr.Forbidden("viewers have read-only access")
}
