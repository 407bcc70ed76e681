package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if payment == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, org_id, invoice_id, amount_minor, method, payment_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrgID,
		payment.InvoiceID,
		payment.AmountMinor,
		payment.Method,
		payment.PaymentDate,
		payment.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return payments[0], nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) CountByInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payments WHERE org_id = ? AND invoice_id = ?`,
		orgID,
		invoiceID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("payment_date asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
