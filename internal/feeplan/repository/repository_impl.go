package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/feeplan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, plan *domain.FeePlan) error {
	if plan == nil {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "org_id"},
			{Name: "user_id"},
			{Name: "effective_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "percent", "updated_at"}),
	}).Create(plan).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID, effectiveDate time.Time) (*domain.FeePlan, error) {
	var plans []*domain.FeePlan
	err := db.WithContext(ctx).
		Where("org_id = ? AND user_id = ? AND effective_date = ?", orgID, userID, effectiveDate.UTC()).
		Limit(1).
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return plans[0], nil
}

func (r *repo) LatestEffective(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID, target time.Time) (*domain.FeePlan, error) {
	var plans []*domain.FeePlan
	err := db.WithContext(ctx).
		Where("org_id = ? AND user_id = ? AND effective_date <= ?", orgID, userID, target.UTC()).
		Order("effective_date desc").
		Limit(1).
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return plans[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID *snowflake.ID) ([]*domain.FeePlan, error) {
	var plans []*domain.FeePlan
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)
	if userID != nil {
		stmt = stmt.Where("user_id = ?", *userID)
	}
	if err := stmt.Order("user_id asc, effective_date desc").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
