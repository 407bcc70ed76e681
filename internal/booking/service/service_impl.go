package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	"github.com/smallbiznis/propbill/internal/clock"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        bookingdomain.Repository
	PropertySvc propertydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        bookingdomain.Repository
	propertySvc propertydomain.Service
}

func NewService(p Params) bookingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("booking.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		propertySvc: p.PropertySvc,
	}
}

func (s *Service) Create(ctx context.Context, req bookingdomain.CreateBookingRequest) (*bookingdomain.Booking, error) {
	if req.OrgID == 0 {
		return nil, bookingdomain.ErrInvalidOrganization
	}
	if req.PropertyID == 0 {
		return nil, bookingdomain.ErrInvalidProperty
	}
	if req.CheckIn.IsZero() || req.CheckOut.IsZero() || req.CheckOut.Before(req.CheckIn) {
		return nil, bookingdomain.ErrInvalidDates
	}
	status := req.Status
	if status == "" {
		status = bookingdomain.BookingStatusUpcoming
	}
	if !status.Valid() {
		return nil, bookingdomain.ErrInvalidStatus
	}

	if _, err := s.propertySvc.Get(ctx, req.OrgID, req.PropertyID); err != nil {
		if errors.Is(err, propertydomain.ErrPropertyNotFound) {
			return nil, bookingdomain.ErrInvalidProperty
		}
		return nil, err
	}

	now := s.clock.Now().UTC()
	booking := bookingdomain.Booking{
		ID:         s.genID.Generate(),
		OrgID:      req.OrgID,
		PropertyID: req.PropertyID,
		CheckIn:    req.CheckIn.UTC(),
		CheckOut:   req.CheckOut.UTC(),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *Service) SetStatus(ctx context.Context, orgID, id snowflake.ID, status bookingdomain.BookingStatus) (*bookingdomain.Booking, error) {
	if orgID == 0 {
		return nil, bookingdomain.ErrInvalidOrganization
	}
	if !status.Valid() {
		return nil, bookingdomain.ErrInvalidStatus
	}

	booking, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	if booking.Status == status {
		return booking, nil
	}
	if booking.Status != bookingdomain.BookingStatusUpcoming {
		return nil, bookingdomain.ErrInvalidStatusTransition
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, orgID, id, status, now); err != nil {
		return nil, err
	}
	booking.Status = status
	booking.UpdatedAt = now
	return booking, nil
}

func (s *Service) List(ctx context.Context, filter bookingdomain.ListFilter) ([]bookingdomain.Booking, error) {
	if filter.OrgID == 0 {
		return nil, bookingdomain.ErrInvalidOrganization
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, bookingdomain.ErrInvalidStatus
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	bookings := make([]bookingdomain.Booking, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bookings = append(bookings, *item)
	}
	return bookings, nil
}

func (s *Service) CompletedNights(ctx context.Context, orgID, propertyID snowflake.ID, from, to time.Time) (int, error) {
	if orgID == 0 {
		return 0, bookingdomain.ErrInvalidOrganization
	}
	items, err := s.repo.List(ctx, s.db, bookingdomain.ListFilter{
		OrgID:      orgID,
		PropertyID: propertyID,
		Status:     bookingdomain.BookingStatusCompleted,
		From:       &from,
		To:         &to,
	})
	if err != nil {
		return 0, err
	}

	nights := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		nights += item.Nights()
	}
	return nights, nil
}
