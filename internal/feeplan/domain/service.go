package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type UpsertRequest struct {
	OrgID         snowflake.ID
	UserID        snowflake.ID
	Tier          string
	EffectiveDate time.Time
}

type Service interface {
	// Upsert creates the plan or replaces the tier of the plan for the same day.
	Upsert(ctx context.Context, req UpsertRequest) (*FeePlan, error)
	List(ctx context.Context, orgID snowflake.ID, userID *snowflake.ID) ([]FeePlan, error)
	// Resolve picks the newest plan effective on target: user plan, then org plan,
	// then the configured default tier. It never caches.
	Resolve(ctx context.Context, orgID, userID snowflake.ID, target time.Time) (Resolution, error)
	ResolvePercent(ctx context.Context, orgID, userID snowflake.ID, target time.Time) (int, error)
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, plan *FeePlan) error
	FindByKey(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID, effectiveDate time.Time) (*FeePlan, error)
	LatestEffective(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID, target time.Time) (*FeePlan, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID *snowflake.ID) ([]*FeePlan, error)
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidTier          = errors.New("invalid_tier")
	ErrInvalidEffectiveDate = errors.New("invalid_effective_date")
	ErrInvalidTargetDate    = errors.New("invalid_target_date")
)
