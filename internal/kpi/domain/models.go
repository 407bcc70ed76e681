package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
)

// RatePlaces is the precision of occupancy and vacancy rates.
const RatePlaces = 4

// Scope selects the org as a whole (PropertyID 0) or one property.
type Scope struct {
	OrgID      snowflake.ID
	PropertyID snowflake.ID
}

func (s Scope) IsProperty() bool { return s.PropertyID != 0 }

// Label is used as a metric attribute.
func (s Scope) Label() string {
	if s.IsProperty() {
		return "property"
	}
	return "org"
}

// Aggregate is the fee-less monthly roll-up of ledger entries and bookings.
// Occupancy is always nights over the days in the month. PortfolioOccupancy
// divides by CapacityDays, which for an org is days times its property count.
type Aggregate struct {
	Scope              Scope
	Month              time.Time
	Totals             ledgerdomain.Totals
	NightsBooked       int
	DaysInMonth        int
	CapacityDays       int
	Occupancy          decimal.Decimal
	Vacancy            decimal.Decimal
	PortfolioOccupancy decimal.Decimal
}

// Rates returns occupancy and vacancy for nights over capacity days.
func Rates(nights, capacityDays int) (decimal.Decimal, decimal.Decimal) {
	if capacityDays <= 0 {
		return decimal.Zero, decimal.NewFromInt(1)
	}
	occupancy := decimal.NewFromInt(int64(nights)).
		DivRound(decimal.NewFromInt(int64(capacityDays)), RatePlaces+2)
	vacancy := decimal.NewFromInt(1).Sub(occupancy)
	return occupancy.Round(RatePlaces), vacancy.Round(RatePlaces)
}

// Snapshot is the KPI view of one month. It is computed on read and never stored.
type Snapshot struct {
	OrgID                  snowflake.ID       `json:"org_id"`
	PropertyID             snowflake.ID       `json:"property_id,omitempty"`
	Month                  string             `json:"month"`
	GrossRevenueMinor      int64              `json:"gross_revenue_minor"`
	ExpensesMinor          int64              `json:"expenses_minor"`
	FeePercent             int                `json:"fee_percent"`
	ManagementFeeMinor     int64              `json:"management_fee_minor"`
	NetRevenueMinor        int64              `json:"net_revenue_minor"`
	NightsBooked           int                `json:"nights_booked"`
	DaysInMonth            int                `json:"days_in_month"`
	OccupancyRate          decimal.Decimal    `json:"occupancy_rate"`
	VacancyRate            decimal.Decimal    `json:"vacancy_rate"`
	PortfolioOccupancyRate decimal.Decimal    `json:"portfolio_occupancy_rate"`
	Tier                   feeplandomain.Tier `json:"tier"`
	FeePlanID              snowflake.ID       `json:"fee_plan_id,omitempty"`
	FeeDefaulted           bool               `json:"fee_defaulted"`

	// UserID, MonthStart and Resolution carry the inputs used for invoice provenance.
	UserID     snowflake.ID             `json:"-"`
	MonthStart time.Time                `json:"-"`
	Resolution feeplandomain.Resolution `json:"-"`
}
