package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, org_id, property_id, amount_minor, entry_date, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrgID,
		entry.PropertyID,
		entry.AmountMinor,
		entry.EntryDate,
		entry.Description,
		entry.CreatedAt,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM ledger_entries WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("org_id = ?", filter.OrgID)

	if filter.PropertyID != 0 {
		stmt = stmt.Where("property_id = ?", filter.PropertyID)
	}
	if filter.From != nil {
		stmt = stmt.Where("entry_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("entry_date < ?", filter.To.UTC())
	}

	if err := stmt.Order("entry_date asc, id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SumWindow(ctx context.Context, db *gorm.DB, orgID, propertyID snowflake.ID, from, to time.Time) (domain.Totals, error) {
	var totals domain.Totals
	query := `SELECT
			COALESCE(SUM(CASE WHEN amount_minor > 0 THEN amount_minor ELSE 0 END), 0) AS gross_minor,
			COALESCE(SUM(CASE WHEN amount_minor < 0 THEN -amount_minor ELSE 0 END), 0) AS expenses_minor
		FROM ledger_entries
		WHERE org_id = ? AND entry_date >= ? AND entry_date < ?`
	args := []any{orgID, from.UTC(), to.UTC()}
	if propertyID != 0 {
		query += ` AND property_id = ?`
		args = append(args, propertyID)
	}

	if err := db.WithContext(ctx).Raw(query, args...).Scan(&totals).Error; err != nil {
		return domain.Totals{}, err
	}
	return totals, nil
}
