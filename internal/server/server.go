package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/propbill/internal/audit"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/internal/authorization"
	"github.com/smallbiznis/propbill/internal/booking"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	"github.com/smallbiznis/propbill/internal/feeplan"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	"github.com/smallbiznis/propbill/internal/invoice"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	"github.com/smallbiznis/propbill/internal/kpi"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	"github.com/smallbiznis/propbill/internal/ledger"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
	"github.com/smallbiznis/propbill/internal/observability"
	obsmiddleware "github.com/smallbiznis/propbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/propbill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/propbill/internal/observability/tracing"
	"github.com/smallbiznis/propbill/internal/organization"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"github.com/smallbiznis/propbill/internal/payment"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	"github.com/smallbiznis/propbill/internal/property"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"github.com/smallbiznis/propbill/internal/providers"
	"github.com/smallbiznis/propbill/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	providers.Module,
	organization.Module,
	property.Module,
	ledger.Module,
	booking.Module,
	feeplan.Module,
	kpi.Module,
	invoice.Module,
	payment.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	clock           clock.Clock
	billing         *config.BillingConfigHolder
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	organizationSvc organizationdomain.Service
	propertySvc     propertydomain.Service
	ledgerSvc       ledgerdomain.Service
	bookingSvc      bookingdomain.Service
	feePlanSvc      feeplandomain.Service
	kpiSvc          kpidomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	generateLimiter *ratelimit.GenerateLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	Clock           clock.Clock
	Billing         *config.BillingConfigHolder
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	OrganizationSvc organizationdomain.Service
	PropertySvc     propertydomain.Service
	LedgerSvc       ledgerdomain.Service
	BookingSvc      bookingdomain.Service
	FeePlanSvc      feeplandomain.Service
	KPISvc          kpidomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	GenerateLimiter *ratelimit.GenerateLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		clock:           p.Clock,
		billing:         p.Billing,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		organizationSvc: p.OrganizationSvc,
		propertySvc:     p.PropertySvc,
		ledgerSvc:       p.LedgerSvc,
		bookingSvc:      p.BookingSvc,
		feePlanSvc:      p.FeePlanSvc,
		kpiSvc:          p.KPISvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		generateLimiter: p.GenerateLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.ActorRequired())

	api.POST("/orgs", s.CreateOrganization)

	org := api.Group("/orgs/:org_id", s.OrgContext())
	org.GET("", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.GetOrganization)
	org.POST("/members", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationManage), s.AddOrganizationMember)

	// -------- Invoices --------
	org.POST("/invoices/generate", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceGenerate), s.GenerateRateLimit(), s.GenerateInvoice)
	org.GET("/invoices", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	org.GET("/invoices/:id", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceByID)
	org.GET("/invoices/:id/pdf", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.RenderInvoicePDF)
	org.POST("/invoices/:id/status", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceSetStatus), s.SetInvoiceStatus)
	org.DELETE("/invoices/:id", s.authorizeOrgAction(authorization.ObjectInvoice, authorization.ActionInvoiceDelete), s.DeleteInvoice)

	// -------- Payments --------
	org.POST("/invoices/:id/payments", s.authorizeOrgAction(authorization.ObjectPayment, authorization.ActionPaymentApply), s.ApplyPayment)
	org.GET("/invoices/:id/payments", s.authorizeOrgAction(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	org.DELETE("/payments/:id", s.authorizeOrgAction(authorization.ObjectPayment, authorization.ActionPaymentRemove), s.RemovePayment)

	// -------- KPIs --------
	org.GET("/kpis", s.authorizeOrgAction(authorization.ObjectKPI, authorization.ActionKPIView), s.GetKPISnapshot)
	org.GET("/kpis/history", s.authorizeOrgAction(authorization.ObjectKPI, authorization.ActionKPIView), s.GetKPIHistory)

	// -------- Fee plans --------
	org.POST("/fee-plans", s.authorizeOrgAction(authorization.ObjectFeePlan, authorization.ActionFeePlanUpsert), s.UpsertFeePlan)
	org.GET("/fee-plans", s.authorizeOrgAction(authorization.ObjectFeePlan, authorization.ActionFeePlanView), s.ListFeePlans)
	org.GET("/fee-plans/resolve", s.authorizeOrgAction(authorization.ObjectFeePlan, authorization.ActionFeePlanView), s.ResolveFeePlan)
	org.POST("/fee-plans/reapply", s.authorizeOrgAction(authorization.ObjectFeePlan, authorization.ActionFeePlanReapply), s.ReapplyFee)

	// -------- Properties --------
	org.POST("/properties", s.authorizeOrgAction(authorization.ObjectProperty, authorization.ActionPropertyManage), s.CreateProperty)
	org.GET("/properties", s.authorizeOrgAction(authorization.ObjectProperty, authorization.ActionPropertyView), s.ListProperties)
	org.GET("/properties/:id", s.authorizeOrgAction(authorization.ObjectProperty, authorization.ActionPropertyView), s.GetPropertyByID)
	org.DELETE("/properties/:id", s.authorizeOrgAction(authorization.ObjectProperty, authorization.ActionPropertyManage), s.DeleteProperty)

	// -------- Ledger --------
	org.POST("/ledger-entries", s.authorizeOrgAction(authorization.ObjectLedger, authorization.ActionLedgerManage), s.CreateLedgerEntry)
	org.GET("/ledger-entries", s.authorizeOrgAction(authorization.ObjectLedger, authorization.ActionLedgerView), s.ListLedgerEntries)
	org.DELETE("/ledger-entries/:id", s.authorizeOrgAction(authorization.ObjectLedger, authorization.ActionLedgerManage), s.DeleteLedgerEntry)

	// -------- Bookings --------
	org.POST("/bookings", s.authorizeOrgAction(authorization.ObjectBooking, authorization.ActionBookingManage), s.CreateBooking)
	org.GET("/bookings", s.authorizeOrgAction(authorization.ObjectBooking, authorization.ActionBookingView), s.ListBookings)
	org.POST("/bookings/:id/status", s.authorizeOrgAction(authorization.ObjectBooking, authorization.ActionBookingManage), s.SetBookingStatus)

	org.GET("/audit-logs", s.authorizeOrgAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
