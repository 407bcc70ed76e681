package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/internal/fee"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type pendingFee struct {
	id     snowflake.ID
	update invoicedomain.FeeUpdate
}

// ReapplyFee resolves each invoice's plan at its bill month and rewrites the
// fee fields that changed. Plans are resolved before the write transaction.
func (s *Service) ReapplyFee(ctx context.Context, orgID snowflake.ID, userID *snowflake.ID) (invoicedomain.ReapplyResult, error) {
	if orgID == 0 {
		return invoicedomain.ReapplyResult{}, invoicedomain.ErrInvalidOrganization
	}

	invoices, err := s.repo.List(ctx, s.db, invoicedomain.ListFilter{
		OrgID:  orgID,
		UserID: userID,
	})
	if err != nil {
		return invoicedomain.ReapplyResult{}, err
	}

	now := s.clock.Now().UTC()
	pending := make([]pendingFee, 0)
	for _, invoice := range invoices {
		if invoice == nil {
			continue
		}
		resolution, err := s.feePlanSvc.Resolve(ctx, orgID, invoice.UserID, invoice.BillMonth)
		if err != nil {
			return invoicedomain.ReapplyResult{}, err
		}
		breakdown := fee.Calculate(invoice.GrossRevenueMinor, invoice.ExpensesMinor, resolution.Percent)
		if breakdown.Percent == invoice.FeePercent &&
			breakdown.FeeMinor == invoice.FeeMinor &&
			breakdown.NetMinor == invoice.NetRevenueMinor &&
			breakdown.FeeMinor == invoice.AmountDueMinor {
			continue
		}

		meta := datatypes.JSONMap{}
		for k, v := range invoice.Metadata {
			meta[k] = v
		}
		meta["tier"] = string(resolution.Tier)
		meta["defaulted"] = resolution.Defaulted
		meta["user_scoped"] = resolution.UserScoped
		meta["fee_reapplied_at"] = now.Format(time.RFC3339)
		meta["previous_fee_percent"] = invoice.FeePercent
		if resolution.PlanID != 0 {
			meta["fee_plan_id"] = resolution.PlanID.String()
		} else {
			delete(meta, "fee_plan_id")
		}

		pending = append(pending, pendingFee{
			id: invoice.ID,
			update: invoicedomain.FeeUpdate{
				FeePercent:      breakdown.Percent,
				FeeMinor:        breakdown.FeeMinor,
				NetRevenueMinor: breakdown.NetMinor,
				AmountDueMinor:  breakdown.FeeMinor,
				Metadata:        meta,
				UpdatedAt:       now,
			},
		})
	}

	result := invoicedomain.ReapplyResult{Scanned: len(invoices), Updated: len(pending)}
	if len(pending) > 0 {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, item := range pending {
				if err := s.repo.UpdateFee(ctx, tx, orgID, item.id, item.update); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return invoicedomain.ReapplyResult{}, err
		}
	}

	s.obsMetrics.RecordFeeReapplied(ctx, result.Updated)
	if s.auditSvc != nil {
		metadata := map[string]any{
			"scanned": result.Scanned,
			"updated": result.Updated,
		}
		if userID != nil {
			metadata["user_id"] = userID.String()
		}
		if err := s.auditSvc.Record(ctx, auditdomain.Entry{
			OrgID:      orgID,
			Action:     "fee.reapplied",
			TargetType: auditdomain.TargetOrganization,
			TargetID:   orgID.String(),
			Metadata:   metadata,
		}); err != nil {
			s.log.Warn("audit log failed", zap.String("action", "fee.reapplied"), zap.Error(err))
		}
	}
	s.log.Info("fee reapplied",
		zap.String("org_id", orgID.String()),
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}
