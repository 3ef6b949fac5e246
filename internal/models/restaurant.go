package models

import "time"

type Restaurant struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	Address   string `gorm:"size:255"`
	Phone     string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}

// UnknownRestaurantName is reported when an entry's restaurant record is gone.
const UnknownRestaurantName = "Unknown Restaurant"
