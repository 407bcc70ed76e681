package service_test

import (
	"context"
	"testing"
	"time"

	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsInvertedDates(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "Booking Org")
	property := e.CreateProperty(t, org.ID, 0, "Villa")

	_, err := e.Bookings.Create(context.Background(), bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: property.ID,
		CheckIn:  enginetest.Date(2025, time.May, 13),
		CheckOut: enginetest.Date(2025, time.May, 10),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidDates)

	_, err = e.Bookings.Create(context.Background(), bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: e.Node.Generate(),
		CheckIn:  enginetest.Date(2025, time.May, 10),
		CheckOut: enginetest.Date(2025, time.May, 13),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidProperty)
}

func TestCompletedNightsIgnoresOtherStatuses(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Nights Org")
	property := e.CreateProperty(t, org.ID, 0, "Villa")

	completed, err := e.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: property.ID,
		CheckIn:  enginetest.Date(2025, time.May, 10),
		CheckOut: enginetest.Date(2025, time.May, 13),
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusUpcoming, completed.Status)

	cancelled, err := e.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: property.ID,
		CheckIn:  enginetest.Date(2025, time.May, 10),
		CheckOut: enginetest.Date(2025, time.May, 13),
	})
	require.NoError(t, err)

	_, err = e.Bookings.SetStatus(ctx, org.ID, completed.ID, bookingdomain.BookingStatusCompleted)
	require.NoError(t, err)
	_, err = e.Bookings.SetStatus(ctx, org.ID, cancelled.ID, bookingdomain.BookingStatusCancelled)
	require.NoError(t, err)

	nights, err := e.Bookings.CompletedNights(ctx, org.ID, property.ID, enginetest.Date(2025, time.May, 1), enginetest.Date(2025, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, nights)

	orgNights, err := e.Bookings.CompletedNights(ctx, org.ID, 0, enginetest.Date(2025, time.May, 1), enginetest.Date(2025, time.June, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, orgNights)
}

func TestSetStatusTransitions(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Status Org")
	property := e.CreateProperty(t, org.ID, 0, "Villa")

	booking, err := e.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: property.ID,
		CheckIn:  enginetest.Date(2025, time.May, 10),
		CheckOut: enginetest.Date(2025, time.May, 12),
	})
	require.NoError(t, err)

	_, err = e.Bookings.SetStatus(ctx, org.ID, booking.ID, bookingdomain.BookingStatus("lost"))
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidStatus)

	done, err := e.Bookings.SetStatus(ctx, org.ID, booking.ID, bookingdomain.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusCompleted, done.Status)

	same, err := e.Bookings.SetStatus(ctx, org.ID, booking.ID, bookingdomain.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusCompleted, same.Status)

	_, err = e.Bookings.SetStatus(ctx, org.ID, booking.ID, bookingdomain.BookingStatusCancelled)
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidStatusTransition)

	_, err = e.Bookings.SetStatus(ctx, org.ID, e.Node.Generate(), bookingdomain.BookingStatusCancelled)
	assert.ErrorIs(t, err, bookingdomain.ErrBookingNotFound)
}
