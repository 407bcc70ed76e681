package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	"github.com/smallbiznis/propbill/internal/fee"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/propbill/internal/observability/metrics"
	"github.com/smallbiznis/propbill/internal/period"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const historyConcurrency = 4

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	LedgerSvc   ledgerdomain.Service
	BookingSvc  bookingdomain.Service
	PropertySvc propertydomain.Service
	FeePlanSvc  feeplandomain.Service
	Billing     *config.BillingConfigHolder `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	ledgerSvc   ledgerdomain.Service
	bookingSvc  bookingdomain.Service
	propertySvc propertydomain.Service
	feePlanSvc  feeplandomain.Service
	billing     *config.BillingConfigHolder
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) kpidomain.Service {
	return &Service{
		log:         p.Log.Named("kpi.service"),
		clock:       p.Clock,
		ledgerSvc:   p.LedgerSvc,
		bookingSvc:  p.BookingSvc,
		propertySvc: p.PropertySvc,
		feePlanSvc:  p.FeePlanSvc,
		billing:     p.Billing,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Aggregate(ctx context.Context, scope kpidomain.Scope, month time.Time) (kpidomain.Aggregate, error) {
	if scope.OrgID == 0 {
		return kpidomain.Aggregate{}, kpidomain.ErrInvalidOrganization
	}
	if month.IsZero() {
		return kpidomain.Aggregate{}, kpidomain.ErrInvalidMonth
	}

	from, to := period.Window(month)

	totals, err := s.ledgerSvc.Totals(ctx, scope.OrgID, scope.PropertyID, from, to)
	if err != nil {
		return kpidomain.Aggregate{}, err
	}
	nights, err := s.bookingSvc.CompletedNights(ctx, scope.OrgID, scope.PropertyID, from, to)
	if err != nil {
		return kpidomain.Aggregate{}, err
	}

	days := period.DaysInMonth(from)
	capacity := days
	if !scope.IsProperty() {
		count, err := s.propertySvc.Count(ctx, scope.OrgID)
		if err != nil {
			return kpidomain.Aggregate{}, err
		}
		if count > 1 {
			capacity = days * int(count)
		}
	}

	occupancy, vacancy := kpidomain.Rates(nights, days)
	portfolio, _ := kpidomain.Rates(nights, capacity)
	return kpidomain.Aggregate{
		Scope:              scope,
		Month:              from,
		Totals:             totals,
		NightsBooked:       nights,
		DaysInMonth:        days,
		CapacityDays:       capacity,
		Occupancy:          occupancy,
		Vacancy:            vacancy,
		PortfolioOccupancy: portfolio,
	}, nil
}

func (s *Service) Snapshot(ctx context.Context, scope kpidomain.Scope, month time.Time) (kpidomain.Snapshot, error) {
	var userID snowflake.ID
	if scope.IsProperty() {
		property, err := s.propertySvc.Get(ctx, scope.OrgID, scope.PropertyID)
		if err != nil {
			return kpidomain.Snapshot{}, err
		}
		userID = property.OwnerUserID
	}

	agg, err := s.Aggregate(ctx, scope, month)
	if err != nil {
		return kpidomain.Snapshot{}, err
	}

	resolution, err := s.feePlanSvc.Resolve(ctx, scope.OrgID, userID, agg.Month)
	if err != nil {
		return kpidomain.Snapshot{}, err
	}
	breakdown := fee.Calculate(agg.Totals.GrossMinor, agg.Totals.ExpensesMinor, resolution.Percent)

	s.obsMetrics.RecordKPISnapshot(ctx, scope.Label())

	return kpidomain.Snapshot{
		OrgID:                  scope.OrgID,
		PropertyID:             scope.PropertyID,
		Month:                  period.Format(agg.Month),
		GrossRevenueMinor:      breakdown.GrossMinor,
		ExpensesMinor:          breakdown.ExpensesMinor,
		FeePercent:             breakdown.Percent,
		ManagementFeeMinor:     breakdown.FeeMinor,
		NetRevenueMinor:        breakdown.NetMinor,
		NightsBooked:           agg.NightsBooked,
		DaysInMonth:            agg.DaysInMonth,
		OccupancyRate:          agg.Occupancy,
		VacancyRate:            agg.Vacancy,
		PortfolioOccupancyRate: agg.PortfolioOccupancy,
		Tier:                   resolution.Tier,
		FeePlanID:              resolution.PlanID,
		FeeDefaulted:           resolution.Defaulted,
		UserID:                 userID,
		MonthStart:             agg.Month,
		Resolution:             resolution,
	}, nil
}

func (s *Service) History(ctx context.Context, orgID snowflake.ID, months int) ([]kpidomain.Snapshot, error) {
	if orgID == 0 {
		return nil, kpidomain.ErrInvalidOrganization
	}
	if months < 1 || months > s.historyMax() {
		return nil, kpidomain.ErrInvalidMonths
	}

	targets := period.LastMonths(s.clock.Now(), months)
	out := make([]kpidomain.Snapshot, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrency)
	for i, month := range targets {
		g.Go(func() error {
			snapshot, err := s.Snapshot(gctx, kpidomain.Scope{OrgID: orgID}, month)
			if err != nil {
				return err
			}
			out[i] = snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("kpi history failed",
			zap.String("org_id", orgID.String()),
			zap.Int("months", months),
			zap.Error(err),
		)
		return nil, err
	}
	return out, nil
}

func (s *Service) historyMax() int {
	if limit := s.billing.Get().HistoryMaxMonths; limit > 0 {
		return limit
	}
	return config.DefaultBillingConfig().HistoryMaxMonths
}
