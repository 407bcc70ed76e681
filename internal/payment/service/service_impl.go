package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/internal/clock"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	obslogger "github.com/smallbiznis/propbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/propbill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	"github.com/smallbiznis/propbill/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	AuditSvc    auditdomain.Service  `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	auditSvc    auditdomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) ApplyPayment(ctx context.Context, req paymentdomain.ApplyRequest) (*invoicedomain.Invoice, error) {
	if req.OrgID == 0 {
		return nil, paymentdomain.ErrInvalidOrganization
	}
	if req.InvoiceID == 0 {
		return nil, paymentdomain.ErrInvalidInvoice
	}
	if req.AmountMinor <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	method, ok := paymentdomain.ParseMethod(req.Method)
	if !ok {
		return nil, paymentdomain.ErrInvalidMethod
	}

	now := s.clock.Now().UTC()
	paymentDate := period.DateOnly(now)
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = period.DateOnly(*req.PaymentDate)
	}

	payment := paymentdomain.Payment{
		ID:          s.genID.Generate(),
		OrgID:       req.OrgID,
		InvoiceID:   req.InvoiceID,
		AmountMinor: req.AmountMinor,
		Method:      method,
		PaymentDate: paymentDate,
		CreatedAt:   now,
	}

	var updated *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindByID(ctx, tx, req.OrgID, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		invoice.Status = invoicedomain.InvoiceStatusPaid
		invoice.PaidAt = &now
		invoice.VoidedAt = nil
		invoice.UpdatedAt = now
		if err := s.invoiceRepo.UpdateStatus(ctx, tx, invoice); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, updated, payment.ID, "payment.applied", map[string]any{
		"invoice_id":   payment.InvoiceID.String(),
		"amount_minor": payment.AmountMinor,
		"method":       string(payment.Method),
		"payment_date": payment.PaymentDate.Format(time.DateOnly),
	})
	s.obsMetrics.RecordPaymentEvent(ctx, "applied", string(method))

	obslogger.WithContext(ctx, s.log).Info("payment applied",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount_minor", payment.AmountMinor),
	)
	return updated, nil
}

func (s *Service) RemovePayment(ctx context.Context, orgID, paymentID snowflake.ID) (*invoicedomain.Invoice, error) {
	if orgID == 0 {
		return nil, paymentdomain.ErrInvalidOrganization
	}

	var (
		updated *invoicedomain.Invoice
		removed *paymentdomain.Payment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, orgID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrPaymentNotFound
		}
		removed = payment

		if _, err := s.repo.Delete(ctx, tx, orgID, paymentID); err != nil {
			return err
		}

		invoice, err := s.invoiceRepo.FindByID(ctx, tx, orgID, payment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}

		remaining, err := s.repo.CountByInvoice(ctx, tx, orgID, payment.InvoiceID)
		if err != nil {
			return err
		}
		// Without payments the invoice is due again, whatever status it had.
		if remaining == 0 {
			invoice.Status = invoicedomain.InvoiceStatusDue
			invoice.PaidAt = nil
			invoice.VoidedAt = nil
			invoice.UpdatedAt = s.clock.Now().UTC()
			if err := s.invoiceRepo.UpdateStatus(ctx, tx, invoice); err != nil {
				return err
			}
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, updated, removed.ID, "payment.removed", map[string]any{
		"invoice_id":     removed.InvoiceID.String(),
		"amount_minor":   removed.AmountMinor,
		"invoice_status": string(updated.Status),
	})
	s.obsMetrics.RecordPaymentEvent(ctx, "removed", string(removed.Method))
	return updated, nil
}

func (s *Service) List(ctx context.Context, orgID, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	if orgID == 0 {
		return nil, paymentdomain.ErrInvalidOrganization
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	items, err := s.repo.ListByInvoice(ctx, s.db, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return payments, nil
}

// audit files a payment event under both the payment and its invoice.
func (s *Service) audit(ctx context.Context, invoice *invoicedomain.Invoice, paymentID snowflake.ID, action string, metadata map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		OrgID:      invoice.OrgID,
		PropertyID: invoice.PropertyID,
		InvoiceID:  invoice.ID,
		Action:     action,
		TargetType: auditdomain.TargetPayment,
		TargetID:   paymentID.String(),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
