package service_test

import (
	"context"
	"testing"
	"time"

	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPropertyScope(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "KPI Org")
	owner := e.Node.Generate()
	property := e.CreateProperty(t, org.ID, owner, "Harbor View")

	e.AddEntry(t, org.ID, property.ID, 500000, enginetest.Date(2025, time.March, 1))
	e.AddEntry(t, org.ID, property.ID, -80000, enginetest.Date(2025, time.March, 31))
	e.SetPlan(t, org.ID, owner, feeplandomain.TierElevate, enginetest.Date(2025, time.February, 1))

	_, err := e.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: property.ID,
		CheckIn:  enginetest.Date(2025, time.March, 10),
		CheckOut: enginetest.Date(2025, time.March, 13),
		Status:   bookingdomain.BookingStatusCompleted,
	})
	require.NoError(t, err)

	snapshot, err := e.KPIs.Snapshot(ctx, kpidomain.Scope{OrgID: org.ID, PropertyID: property.ID}, enginetest.Date(2025, time.March, 20))
	require.NoError(t, err)

	assert.Equal(t, "2025-03", snapshot.Month)
	assert.EqualValues(t, 500000, snapshot.GrossRevenueMinor)
	assert.EqualValues(t, 80000, snapshot.ExpensesMinor)
	assert.Equal(t, 18, snapshot.FeePercent)
	assert.EqualValues(t, 90000, snapshot.ManagementFeeMinor)
	assert.EqualValues(t, 330000, snapshot.NetRevenueMinor)
	assert.Equal(t, 3, snapshot.NightsBooked)
	assert.Equal(t, 31, snapshot.DaysInMonth)
	assert.Equal(t, "0.0968", snapshot.OccupancyRate.String())
	assert.Equal(t, "0.9032", snapshot.VacancyRate.String())
	assert.Equal(t, feeplandomain.TierElevate, snapshot.Tier)
	assert.False(t, snapshot.FeeDefaulted)
	assert.Equal(t, owner, snapshot.UserID)
}

func TestAggregateEmptyMonthIsZero(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "Empty Org")

	agg, err := e.KPIs.Aggregate(context.Background(), kpidomain.Scope{OrgID: org.ID}, enginetest.Date(2025, time.February, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 0, agg.Totals.GrossMinor)
	assert.EqualValues(t, 0, agg.Totals.ExpensesMinor)
	assert.Equal(t, 0, agg.NightsBooked)
	assert.Equal(t, 28, agg.DaysInMonth)
	assert.True(t, agg.Occupancy.IsZero())
	assert.Equal(t, "1", agg.Vacancy.String())
}

func TestAggregateOrgScopeDividesByDaysInMonth(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Two Homes")
	a := e.CreateProperty(t, org.ID, 0, "A")
	b := e.CreateProperty(t, org.ID, 0, "B")

	_, err := e.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: a.ID,
		CheckIn: enginetest.Date(2025, time.April, 1), CheckOut: enginetest.Date(2025, time.April, 16),
		Status: bookingdomain.BookingStatusCompleted,
	})
	require.NoError(t, err)
	_, err = e.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: org.ID, PropertyID: b.ID,
		CheckIn: enginetest.Date(2025, time.April, 5), CheckOut: enginetest.Date(2025, time.April, 20),
		Status: bookingdomain.BookingStatusCompleted,
	})
	require.NoError(t, err)

	agg, err := e.KPIs.Aggregate(ctx, kpidomain.Scope{OrgID: org.ID}, enginetest.Date(2025, time.April, 1))
	require.NoError(t, err)
	assert.Equal(t, 30, agg.NightsBooked)
	assert.Equal(t, 30, agg.DaysInMonth)
	assert.Equal(t, "1", agg.Occupancy.String())
	assert.True(t, agg.Vacancy.IsZero())
	assert.Equal(t, 60, agg.CapacityDays)
	assert.Equal(t, "0.5", agg.PortfolioOccupancy.String())

	snapshot, err := e.KPIs.Snapshot(ctx, kpidomain.Scope{OrgID: org.ID}, enginetest.Date(2025, time.April, 1))
	require.NoError(t, err)
	assert.Equal(t, "1", snapshot.OccupancyRate.String())
	assert.Equal(t, "0.5", snapshot.PortfolioOccupancyRate.String())
}

func TestHistoryReturnsOldestFirst(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "History Org")
	property := e.CreateProperty(t, org.ID, 0, "Cottage")
	e.AddEntry(t, org.ID, property.ID, 100000, enginetest.Date(2025, time.February, 14))
	e.AddEntry(t, org.ID, property.ID, 250000, enginetest.Date(2025, time.April, 2))

	history, err := e.KPIs.History(context.Background(), org.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, "2025-02", history[0].Month)
	assert.Equal(t, "2025-03", history[1].Month)
	assert.Equal(t, "2025-04", history[2].Month)
	assert.EqualValues(t, 100000, history[0].GrossRevenueMinor)
	assert.EqualValues(t, 0, history[1].GrossRevenueMinor)
	assert.EqualValues(t, 250000, history[2].GrossRevenueMinor)
	assert.EqualValues(t, 30000, history[2].ManagementFeeMinor)
}

func TestHistoryRejectsOutOfRangeMonths(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "Bounds Org")

	_, err := e.KPIs.History(context.Background(), org.ID, 0)
	assert.ErrorIs(t, err, kpidomain.ErrInvalidMonths)

	_, err = e.KPIs.History(context.Background(), org.ID, 25)
	assert.ErrorIs(t, err, kpidomain.ErrInvalidMonths)
}
