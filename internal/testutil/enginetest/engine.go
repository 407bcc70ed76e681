// Package enginetest wires the billing services against an in-memory database.
package enginetest

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	auditrepository "github.com/smallbiznis/propbill/internal/audit/repository"
	auditservice "github.com/smallbiznis/propbill/internal/audit/service"
	"github.com/smallbiznis/propbill/internal/authorization"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	bookingrepository "github.com/smallbiznis/propbill/internal/booking/repository"
	bookingservice "github.com/smallbiznis/propbill/internal/booking/service"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	feeplanrepository "github.com/smallbiznis/propbill/internal/feeplan/repository"
	feeplanservice "github.com/smallbiznis/propbill/internal/feeplan/service"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/propbill/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/propbill/internal/invoice/service"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	kpiservice "github.com/smallbiznis/propbill/internal/kpi/service"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/propbill/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/propbill/internal/ledger/service"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	organizationrepository "github.com/smallbiznis/propbill/internal/organization/repository"
	organizationservice "github.com/smallbiznis/propbill/internal/organization/service"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	paymentrepository "github.com/smallbiznis/propbill/internal/payment/repository"
	paymentservice "github.com/smallbiznis/propbill/internal/payment/service"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	propertyservice "github.com/smallbiznis/propbill/internal/property/service"
	"github.com/smallbiznis/propbill/internal/providers/email"
	"github.com/smallbiznis/propbill/internal/providers/pdf"
	"github.com/smallbiznis/propbill/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tweak the wired engine.
type Options struct {
	Now     time.Time
	Billing config.BillingConfig
	Email   email.Provider
}

type Engine struct {
	DB      *gorm.DB
	Node    *snowflake.Node
	Clock   *clock.FakeClock
	Billing *config.BillingConfigHolder

	Organizations organizationdomain.Service
	Properties    propertydomain.Service
	Ledger        ledgerdomain.Service
	Bookings      bookingdomain.Service
	FeePlans      feeplandomain.Service
	KPIs          kpidomain.Service
	Invoices      invoicedomain.Service
	InvoiceRepo   invoicedomain.Repository
	Payments      paymentdomain.Service
	Audit         auditdomain.Service
	Authz         authorization.Service
}

// New builds every service of the billing engine over a fresh database.
// The clock defaults to 2025-04-10.
func New(t testing.TB, opts Options) *Engine {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	log := zap.NewNop()

	now := opts.Now
	if now.IsZero() {
		now = time.Date(2025, time.April, 10, 9, 0, 0, 0, time.UTC)
	}
	fakeClock := clock.NewFakeClock(now)

	billingCfg := opts.Billing
	if billingCfg.InvoiceNumberTemplate == "" {
		billingCfg = config.DefaultBillingConfig()
	}
	billing := config.NewStaticBillingConfigHolder(billingCfg)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: auditrepository.Provide(),
	})
	orgSvc := organizationservice.NewService(organizationservice.Params{
		DB: db, Log: log, Repo: organizationrepository.NewRepository(db), GenID: node, Clock: fakeClock, Billing: billing,
	})
	propertySvc := propertyservice.NewService(propertyservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock,
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: ledgerrepository.Provide(), PropertySvc: propertySvc,
	})
	bookingSvc := bookingservice.NewService(bookingservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: bookingrepository.Provide(), PropertySvc: propertySvc,
	})
	feePlanSvc := feeplanservice.NewService(feeplanservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: feeplanrepository.Provide(), Billing: billing, AuditSvc: auditSvc,
	})
	kpiSvc := kpiservice.NewService(kpiservice.Params{
		Log: log, Clock: fakeClock, LedgerSvc: ledgerSvc, BookingSvc: bookingSvc,
		PropertySvc: propertySvc, FeePlanSvc: feePlanSvc, Billing: billing,
	})
	invoiceRepo := invoicerepository.Provide()
	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: invoiceRepo,
		KPISvc: kpiSvc, FeePlanSvc: feePlanSvc, OrgSvc: orgSvc, PropertySvc: propertySvc,
		AppConfig: config.Config{PortalBaseURL: "https://portal.example.com"},
		Billing:   billing, AuditSvc: auditSvc, PDF: pdf.New(), Email: opts.Email,
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: paymentrepository.Provide(),
		InvoiceRepo: invoiceRepo, AuditSvc: auditSvc,
	})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{
		DB: db, Log: log, Enforcer: enforcer, OrgSvc: orgSvc, AuditSvc: auditSvc,
	})

	return &Engine{
		DB:            db,
		Node:          node,
		Clock:         fakeClock,
		Billing:       billing,
		Organizations: orgSvc,
		Properties:    propertySvc,
		Ledger:        ledgerSvc,
		Bookings:      bookingSvc,
		FeePlans:      feePlanSvc,
		KPIs:          kpiSvc,
		Invoices:      invoiceSvc,
		InvoiceRepo:   invoiceRepo,
		Payments:      paymentSvc,
		Audit:         auditSvc,
		Authz:         authzSvc,
	}
}

// CreateOrg creates an organization owned by a fresh user id.
func (e *Engine) CreateOrg(t testing.TB, name string) *organizationdomain.Organization {
	t.Helper()

	org, err := e.Organizations.Create(context.Background(), e.Node.Generate(), organizationdomain.CreateOrganizationRequest{
		Name:         name,
		Currency:     "USD",
		BillingEmail: "billing@example.com",
	})
	require.NoError(t, err)
	return org
}

func (e *Engine) CreateProperty(t testing.TB, orgID, ownerUserID snowflake.ID, name string) *propertydomain.Property {
	t.Helper()

	property, err := e.Properties.Create(context.Background(), propertydomain.CreatePropertyRequest{
		OrgID:       orgID,
		OwnerUserID: ownerUserID,
		Name:        name,
	})
	require.NoError(t, err)
	return property
}

func (e *Engine) AddEntry(t testing.TB, orgID, propertyID snowflake.ID, amountMinor int64, date time.Time) {
	t.Helper()

	_, err := e.Ledger.Create(context.Background(), ledgerdomain.CreateEntryRequest{
		OrgID:       orgID,
		PropertyID:  propertyID,
		AmountMinor: amountMinor,
		EntryDate:   date,
	})
	require.NoError(t, err)
}

func (e *Engine) SetPlan(t testing.TB, orgID, userID snowflake.ID, tier feeplandomain.Tier, effective time.Time) *feeplandomain.FeePlan {
	t.Helper()

	plan, err := e.FeePlans.Upsert(context.Background(), feeplandomain.UpsertRequest{
		OrgID:         orgID,
		UserID:        userID,
		Tier:          string(tier),
		EffectiveDate: effective,
	})
	require.NoError(t, err)
	return plan
}

// Date returns UTC midnight of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
