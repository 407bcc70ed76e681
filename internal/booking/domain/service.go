package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateBookingRequest struct {
	OrgID      snowflake.ID
	PropertyID snowflake.ID
	CheckIn    time.Time
	CheckOut   time.Time
	Status     BookingStatus
}

type ListFilter struct {
	OrgID      snowflake.ID
	PropertyID snowflake.ID
	Status     BookingStatus
	From       *time.Time
	To         *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	SetStatus(ctx context.Context, orgID, id snowflake.ID, status BookingStatus) (*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]Booking, error)
	// CompletedNights sums nights of completed bookings checking in within [from, to).
	CompletedNights(ctx context.Context, orgID, propertyID snowflake.ID, from, to time.Time) (int, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Booking, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status BookingStatus, updatedAt time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Booking, error)
}

var (
	ErrInvalidOrganization     = errors.New("invalid_organization")
	ErrInvalidProperty         = errors.New("invalid_property")
	ErrInvalidDates            = errors.New("invalid_booking_dates")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidStatusTransition = errors.New("invalid_status_transition")
	ErrBookingNotFound         = errors.New("booking_not_found")
)
