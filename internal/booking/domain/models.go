package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

type BookingStatus string

const (
	BookingStatusUpcoming  BookingStatus = "upcoming"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusUpcoming, BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// Booking is a stay at a property. Only completed bookings count toward occupancy.
type Booking struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID  `gorm:"not null;index:ix_bookings_scope,priority:1" json:"org_id"`
	PropertyID snowflake.ID  `gorm:"not null;index:ix_bookings_scope,priority:2" json:"property_id"`
	CheckIn    time.Time     `gorm:"not null;index:ix_bookings_scope,priority:3" json:"check_in"`
	CheckOut   time.Time     `gorm:"not null" json:"check_out"`
	Status     BookingStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

// Nights returns the booked nights of the stay, rounding partial days up.
func (b Booking) Nights() int {
	return Nights(b.CheckIn, b.CheckOut)
}

// Nights is ceil(checkOut - checkIn) in days, never negative.
func Nights(checkIn, checkOut time.Time) int {
	if !checkOut.After(checkIn) {
		return 0
	}
	days := checkOut.Sub(checkIn).Hours() / 24
	return int(math.Ceil(days))
}
