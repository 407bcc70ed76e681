package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	if booking == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (id, org_id, property_id, check_in, check_out, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.OrgID,
		booking.PropertyID,
		booking.CheckIn,
		booking.CheckOut,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Booking, error) {
	var bookings []*domain.Booking
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return bookings[0], nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, status domain.BookingStatus, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings SET status = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		status,
		updatedAt,
		orgID,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	stmt := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("org_id = ?", filter.OrgID)

	if filter.PropertyID != 0 {
		stmt = stmt.Where("property_id = ?", filter.PropertyID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		stmt = stmt.Where("check_in >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("check_in < ?", filter.To.UTC())
	}

	if err := stmt.Order("check_in asc, id asc").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}
