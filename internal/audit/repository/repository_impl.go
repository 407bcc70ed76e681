package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/propbill/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, org_id, property_id, invoice_id, actor_type, actor_id, action,
			target_type, target_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrgID,
		entry.PropertyID,
		entry.InvoiceID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		string(entry.TargetType),
		entry.TargetID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

// List returns one org's entries newest first. Limit+1 rows are read so the
// caller can tell whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{}).
		Where("org_id = ?", filter.OrgID)

	if filter.PropertyID != 0 {
		stmt = stmt.Where("property_id = ?", filter.PropertyID)
	}
	if filter.InvoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", filter.InvoiceID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		// "invoice." style prefixes select a whole event family.
		if strings.HasSuffix(action, ".") {
			stmt = stmt.Where("action LIKE ?", action+"%")
		} else {
			stmt = stmt.Where("action = ?", action)
		}
	}
	if filter.TargetType != "" {
		stmt = stmt.Where("target_type = ?", string(filter.TargetType))
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if actorType := strings.TrimSpace(filter.ActorType); actorType != "" {
		stmt = stmt.Where("actor_type = ?", actorType)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
