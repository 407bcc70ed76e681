package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	"github.com/smallbiznis/propbill/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     feeplandomain.Repository
	Billing  *config.BillingConfigHolder `optional:"true"`
	AuditSvc auditdomain.Service         `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     feeplandomain.Repository
	billing  *config.BillingConfigHolder
	auditSvc auditdomain.Service
}

func NewService(p Params) feeplandomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("feeplan.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		billing:  p.Billing,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Upsert(ctx context.Context, req feeplandomain.UpsertRequest) (*feeplandomain.FeePlan, error) {
	if req.OrgID == 0 {
		return nil, feeplandomain.ErrInvalidOrganization
	}
	tier, ok := feeplandomain.ParseTier(req.Tier)
	if !ok {
		return nil, feeplandomain.ErrInvalidTier
	}
	if req.EffectiveDate.IsZero() {
		return nil, feeplandomain.ErrInvalidEffectiveDate
	}
	percent, _ := tier.Percent()
	effective := period.DateOnly(req.EffectiveDate)

	now := s.clock.Now().UTC()
	plan := feeplandomain.FeePlan{
		ID:            s.genID.Generate(),
		OrgID:         req.OrgID,
		UserID:        req.UserID,
		Tier:          tier,
		Percent:       percent,
		EffectiveDate: effective,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var stored *feeplandomain.FeePlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &plan); err != nil {
			return err
		}
		found, err := s.repo.FindByKey(ctx, tx, req.OrgID, req.UserID, effective)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("fee plan %s missing after upsert", plan.ID)
		}
		stored = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			OrgID:      stored.OrgID,
			Action:     "fee_plan.upserted",
			TargetType: auditdomain.TargetFeePlan,
			TargetID:   stored.ID.String(),
			Metadata: map[string]any{
				"user_id":        stored.UserID.String(),
				"tier":           string(stored.Tier),
				"percent":        stored.Percent,
				"effective_date": stored.EffectiveDate.Format(time.DateOnly),
			},
		})
	}

	s.log.Info("fee plan upserted",
		zap.String("org_id", stored.OrgID.String()),
		zap.String("user_id", stored.UserID.String()),
		zap.String("tier", string(stored.Tier)),
		zap.Time("effective_date", stored.EffectiveDate),
	)
	return stored, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, userID *snowflake.ID) ([]feeplandomain.FeePlan, error) {
	if orgID == 0 {
		return nil, feeplandomain.ErrInvalidOrganization
	}
	items, err := s.repo.List(ctx, s.db, orgID, userID)
	if err != nil {
		return nil, err
	}
	plans := make([]feeplandomain.FeePlan, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		plans = append(plans, *item)
	}
	return plans, nil
}

func (s *Service) Resolve(ctx context.Context, orgID, userID snowflake.ID, target time.Time) (feeplandomain.Resolution, error) {
	if orgID == 0 {
		return feeplandomain.Resolution{}, feeplandomain.ErrInvalidOrganization
	}
	if target.IsZero() {
		return feeplandomain.Resolution{}, feeplandomain.ErrInvalidTargetDate
	}

	if userID != 0 {
		plan, err := s.repo.LatestEffective(ctx, s.db, orgID, userID, target)
		if err != nil {
			return feeplandomain.Resolution{}, err
		}
		if plan != nil {
			return resolutionFromPlan(plan, true), nil
		}
	}

	plan, err := s.repo.LatestEffective(ctx, s.db, orgID, 0, target)
	if err != nil {
		return feeplandomain.Resolution{}, err
	}
	if plan != nil {
		return resolutionFromPlan(plan, false), nil
	}

	return s.defaultResolution(), nil
}

func (s *Service) ResolvePercent(ctx context.Context, orgID, userID snowflake.ID, target time.Time) (int, error) {
	resolution, err := s.Resolve(ctx, orgID, userID, target)
	if err != nil {
		return 0, err
	}
	return resolution.Percent, nil
}

func (s *Service) defaultResolution() feeplandomain.Resolution {
	tier, ok := feeplandomain.ParseTier(s.billing.Get().DefaultTier)
	if !ok {
		s.log.Warn("configured default tier is unknown, using launch", zap.String("tier", s.billing.Get().DefaultTier))
		tier = feeplandomain.TierLaunch
	}
	percent, _ := tier.Percent()
	return feeplandomain.Resolution{
		Tier:      tier,
		Percent:   percent,
		Defaulted: true,
	}
}

func resolutionFromPlan(plan *feeplandomain.FeePlan, userScoped bool) feeplandomain.Resolution {
	effective := plan.EffectiveDate.UTC()
	return feeplandomain.Resolution{
		Tier:          plan.Tier,
		Percent:       plan.Percent,
		PlanID:        plan.ID,
		UserScoped:    userScoped,
		EffectiveDate: &effective,
	}
}
