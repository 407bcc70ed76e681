package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, month time.Time, propertyID snowflake.ID) (*domain.Invoice, error) {
	return first(db.WithContext(ctx).
		Where("org_id = ? AND bill_month = ? AND property_id = ?", orgID, month.UTC(), propertyID))
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	return first(db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, id))
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "org_id"},
			{Name: "bill_month"},
			{Name: "property_id"},
		},
		DoNothing: true,
	}).Create(invoice)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time) (int64, error) {
	seq := domain.InvoiceSequence{OrgID: orgID, LastValue: 1, UpdatedAt: now}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_value": gorm.Expr("last_value + 1"),
			"updated_at": now,
		}),
	}).Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var lastValue int64
	err = db.WithContext(ctx).Raw(
		`SELECT last_value FROM invoice_sequences WHERE org_id = ?`,
		orgID,
	).Scan(&lastValue).Error
	if err != nil {
		return 0, err
	}
	return lastValue, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("org_id = ?", filter.OrgID)

	if filter.PropertyID != nil {
		stmt = stmt.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.MonthFrom != nil {
		stmt = stmt.Where("bill_month >= ?", filter.MonthFrom.UTC())
	}
	if filter.MonthTo != nil {
		stmt = stmt.Where("bill_month <= ?", filter.MonthTo.UTC())
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}

	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, paid_at = ?, voided_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		invoice.Status,
		invoice.PaidAt,
		invoice.VoidedAt,
		invoice.UpdatedAt,
		invoice.OrgID,
		invoice.ID,
	).Error
}

func (r *repo) UpdateFee(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, update domain.FeeUpdate) error {
	return db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(map[string]any{
			"fee_percent":       update.FeePercent,
			"fee_minor":         update.FeeMinor,
			"net_revenue_minor": update.NetRevenueMinor,
			"amount_due_minor":  update.AmountDueMinor,
			"metadata":          update.Metadata,
			"updated_at":        update.UpdatedAt,
		}).Error
}

func (r *repo) MarkSent(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, sentAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET sent_at = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		sentAt,
		sentAt,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE org_id = ? AND invoice_id = ?`,
		orgID,
		id,
	).Error; err != nil {
		return 0, err
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func first(stmt *gorm.DB) (*domain.Invoice, error) {
	var invoices []*domain.Invoice
	if err := stmt.Limit(1).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return invoices[0], nil
}
