package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/propbill/internal/invoice/format"
	"github.com/smallbiznis/propbill/internal/invoice/render"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	obslogger "github.com/smallbiznis/propbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/propbill/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"github.com/smallbiznis/propbill/internal/period"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"github.com/smallbiznis/propbill/internal/providers/email"
	"github.com/smallbiznis/propbill/internal/providers/pdf"
	"github.com/smallbiznis/propbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errInvoiceExists rolls back the numbering transaction when another writer
// inserted the same (org, month, property) first.
var errInvoiceExists = errors.New("invoice_exists")

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        invoicedomain.Repository
	KPISvc      kpidomain.Service
	FeePlanSvc  feeplandomain.Service
	OrgSvc      organizationdomain.Service
	PropertySvc propertydomain.Service
	AppConfig   config.Config               `optional:"true"`
	Billing     *config.BillingConfigHolder `optional:"true"`
	AuditSvc    auditdomain.Service         `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics         `optional:"true"`
	PDF         pdf.Provider                `optional:"true"`
	Email       email.Provider              `optional:"true"`
	Renderer    render.Renderer             `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  invoicedomain.Repository

	kpiSvc      kpidomain.Service
	feePlanSvc  feeplandomain.Service
	orgSvc      organizationdomain.Service
	propertySvc propertydomain.Service
	auditSvc    auditdomain.Service
	obsMetrics  *obsmetrics.Metrics

	billing       *config.BillingConfigHolder
	portalBaseURL string
	pdf           pdf.Provider
	email         email.Provider
	renderer      render.Renderer
}

func NewService(p ServiceParam) invoicedomain.Service {
	renderer := p.Renderer
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,

		kpiSvc:      p.KPISvc,
		feePlanSvc:  p.FeePlanSvc,
		orgSvc:      p.OrgSvc,
		propertySvc: p.PropertySvc,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,

		billing:       p.Billing,
		portalBaseURL: strings.TrimRight(p.AppConfig.PortalBaseURL, "/"),
		pdf:           p.PDF,
		email:         p.Email,
		renderer:      renderer,
	}
}

func (s *Service) GenerateOrFetch(ctx context.Context, req invoicedomain.GenerateRequest) (invoicedomain.GenerateResult, error) {
	if req.OrgID == 0 {
		return invoicedomain.GenerateResult{}, invoicedomain.ErrInvalidOrganization
	}
	if req.Month.IsZero() {
		return invoicedomain.GenerateResult{}, invoicedomain.ErrInvalidMonth
	}
	month := period.MonthStart(req.Month)

	existing, err := s.repo.FindByKey(ctx, s.db, req.OrgID, month, req.PropertyID)
	if err != nil {
		return invoicedomain.GenerateResult{}, err
	}
	if existing != nil {
		s.obsMetrics.RecordInvoiceGenerated(ctx, "existing")
		return invoicedomain.GenerateResult{Invoice: *existing, Created: false}, nil
	}

	org, err := s.orgSvc.GetByID(ctx, req.OrgID)
	if err != nil {
		return invoicedomain.GenerateResult{}, err
	}

	snapshot, err := s.kpiSvc.Snapshot(ctx, kpidomain.Scope{OrgID: req.OrgID, PropertyID: req.PropertyID}, month)
	if err != nil {
		return invoicedomain.GenerateResult{}, err
	}

	now := s.clock.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:                s.genID.Generate(),
		OrgID:             req.OrgID,
		BillMonth:         month,
		PropertyID:        req.PropertyID,
		UserID:            snapshot.UserID,
		Status:            invoicedomain.InvoiceStatusDue,
		AmountDueMinor:    snapshot.ManagementFeeMinor,
		GrossRevenueMinor: snapshot.GrossRevenueMinor,
		ExpensesMinor:     snapshot.ExpensesMinor,
		FeePercent:        snapshot.FeePercent,
		FeeMinor:          snapshot.ManagementFeeMinor,
		NetRevenueMinor:   snapshot.NetRevenueMinor,
		Currency:          org.Currency,
		Metadata:          provenance(snapshot, req.GeneratedBy),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	template := s.billing.Get().InvoiceNumberTemplate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSequence(ctx, tx, req.OrgID, now)
		if err != nil {
			return err
		}
		number, err := invoiceformat.FormatInvoiceNumber(template, month, seq)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		inserted, err := s.repo.InsertIfAbsent(ctx, tx, &invoice)
		if err != nil {
			return err
		}
		if !inserted {
			return errInvoiceExists
		}
		return nil
	})
	if errors.Is(err, errInvoiceExists) {
		winner, findErr := s.repo.FindByKey(ctx, s.db, req.OrgID, month, req.PropertyID)
		if findErr != nil {
			return invoicedomain.GenerateResult{}, findErr
		}
		if winner == nil {
			return invoicedomain.GenerateResult{}, invoicedomain.ErrInvoiceNotFound
		}
		s.obsMetrics.RecordInvoiceGenerated(ctx, "existing")
		return invoicedomain.GenerateResult{Invoice: *winner, Created: false}, nil
	}
	if err != nil {
		s.obsMetrics.RecordInvoiceGenerated(ctx, "failed")
		return invoicedomain.GenerateResult{}, err
	}

	s.obsMetrics.RecordInvoiceGenerated(ctx, "created")
	s.audit(ctx, &invoice, "invoice.generated", map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"bill_month":     period.Format(month),
		"property_id":    invoice.PropertyID.String(),
		"amount_minor":   invoice.AmountDueMinor,
		"fee_percent":    invoice.FeePercent,
		"generated_by":   req.GeneratedBy,
	})
	obslogger.WithContext(ctx, s.log).Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("bill_month", period.Format(month)),
		zap.Int64("amount_due_minor", invoice.AmountDueMinor),
	)

	return invoicedomain.GenerateResult{Invoice: invoice, Created: true}, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	if orgID == 0 {
		return nil, invoicedomain.ErrInvalidOrganization
	}
	if id == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}
	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	if req.OrgID == 0 {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidOrganization
	}
	if req.Status != nil && !req.Status.Valid() {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
	}

	var beforeID snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(cursor.ID))
		if err != nil || id == 0 {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		beforeID = id
	}

	pageSize := req.Limit()
	items, err := s.repo.List(ctx, s.db, invoicedomain.ListFilter{
		OrgID:      req.OrgID,
		PropertyID: req.PropertyID,
		UserID:     req.UserID,
		Status:     req.Status,
		MonthFrom:  monthPtr(req.MonthFrom),
		MonthTo:    monthPtr(req.MonthTo),
		BeforeID:   beforeID,
		Limit:      pageSize,
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *invoicedomain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String()}
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) SetStatus(ctx context.Context, orgID, id snowflake.ID, status invoicedomain.InvoiceStatus) (*invoicedomain.Invoice, error) {
	if orgID == 0 {
		return nil, invoicedomain.ErrInvalidOrganization
	}
	if id == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}
	if !status.Valid() {
		return nil, invoicedomain.ErrInvalidStatus
	}

	var (
		updated  *invoicedomain.Invoice
		previous invoicedomain.InvoiceStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		previous = invoice.Status
		if invoice.Status == status {
			updated = invoice
			return nil
		}
		if !invoice.Status.CanTransitionTo(status) {
			return invoicedomain.ErrInvalidStatusTransition
		}

		now := s.clock.Now().UTC()
		switch status {
		case invoicedomain.InvoiceStatusVoid:
			invoice.VoidedAt = &now
		case invoicedomain.InvoiceStatusDue:
			invoice.VoidedAt = nil
			invoice.PaidAt = nil
		}
		invoice.Status = status
		invoice.UpdatedAt = now
		if err := s.repo.UpdateStatus(ctx, tx, invoice); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != status {
		s.audit(ctx, updated, "invoice.status_changed", map[string]any{
			"from": string(previous),
			"to":   string(status),
		})
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return invoicedomain.ErrInvalidOrganization
	}
	if id == 0 {
		return invoicedomain.ErrInvalidInvoiceID
	}

	var deleted *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		deleted = invoice
		_, err = s.repo.Delete(ctx, tx, orgID, id)
		return err
	})
	if err != nil {
		return err
	}

	s.audit(ctx, deleted, "invoice.deleted", map[string]any{
		"invoice_number": deleted.InvoiceNumber,
	})
	return nil
}

func (s *Service) MarkSent(ctx context.Context, orgID, id snowflake.ID, sentAt time.Time) error {
	if orgID == 0 {
		return invoicedomain.ErrInvalidOrganization
	}
	rows, err := s.repo.MarkSent(ctx, s.db, orgID, id, sentAt.UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		return invoicedomain.ErrInvoiceNotFound
	}
	return nil
}

func (s *Service) audit(ctx context.Context, invoice *invoicedomain.Invoice, action string, metadata map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		OrgID:      invoice.OrgID,
		PropertyID: invoice.PropertyID,
		InvoiceID:  invoice.ID,
		Action:     action,
		TargetType: auditdomain.TargetInvoice,
		TargetID:   invoice.ID.String(),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func provenance(snapshot kpidomain.Snapshot, generatedBy string) datatypes.JSONMap {
	if strings.TrimSpace(generatedBy) == "" {
		generatedBy = "api"
	}
	meta := datatypes.JSONMap{
		"tier":            string(snapshot.Resolution.Tier),
		"defaulted":       snapshot.Resolution.Defaulted,
		"user_scoped":     snapshot.Resolution.UserScoped,
		"fee_resolved_at": snapshot.MonthStart.Format(time.DateOnly),
		"nights_booked":   snapshot.NightsBooked,
		"days_in_month":   snapshot.DaysInMonth,
		"occupancy_rate":  snapshot.OccupancyRate.String(),
		"vacancy_rate":    snapshot.VacancyRate.String(),
		"generated_by":    generatedBy,
	}
	if snapshot.Resolution.PlanID != 0 {
		meta["fee_plan_id"] = snapshot.Resolution.PlanID.String()
	}
	return meta
}

func monthPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	month := period.MonthStart(*t)
	return &month
}
