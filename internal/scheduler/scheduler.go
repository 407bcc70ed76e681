package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/propbill/internal/authorization"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/propbill/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"github.com/smallbiznis/propbill/internal/period"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"github.com/smallbiznis/propbill/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMonthlyInvoices = "monthly_invoices"

	lockKeyFormat = "propbill:scheduler:%s:%s"
	generatedBy   = "scheduler"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Billing     *config.BillingConfigHolder
	OrgSvc      organizationdomain.Service
	PropertySvc propertydomain.Service
	InvoiceSvc  invoicedomain.Service
	Locker      ratelimit.RunLocker
	AuthzSvc    authorization.Service `optional:"true"`
	Config      Config                `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	billing     *config.BillingConfigHolder
	orgSvc      organizationdomain.Service
	propertySvc propertydomain.Service
	invoiceSvc  invoicedomain.Service
	locker      ratelimit.RunLocker
	authzSvc    authorization.Service
	metrics     *obsmetrics.SchedulerMetrics

	cron *cron.Cron
}

// RunSummary counts the invoices touched by one monthly run.
type RunSummary struct {
	Month    time.Time
	Orgs     int
	Created  int
	Existing int
	Failed   int
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.OrgSvc == nil || p.PropertySvc == nil || p.InvoiceSvc == nil || p.Locker == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		billing:     p.Billing,
		orgSvc:      p.OrgSvc,
		propertySvc: p.PropertySvc,
		invoiceSvc:  p.InvoiceSvc,
		locker:      p.Locker,
		authzSvc:    p.AuthzSvc,
		metrics:     obsmetrics.Scheduler(),
	}, nil
}

// Start registers the monthly run on the configured cron spec.
func (s *Scheduler) Start() error {
	spec := s.billing.Get().Schedule
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		if err := s.RunMonthly(context.Background()); err != nil {
			s.log.Warn("monthly invoice run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.log.Info("scheduler started", zap.String("schedule", spec))
	return nil
}

// Stop waits for a running job to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunMonthly bills the month before the current one.
func (s *Scheduler) RunMonthly(ctx context.Context) error {
	month := period.MonthStart(s.clock.Now()).AddDate(0, -1, 0)
	_, err := s.RunMonth(ctx, month)
	return err
}

// RunMonth generates invoices for month under the run lock. A run that finds
// the lock held by another replica is skipped without error.
func (s *Scheduler) RunMonth(parent context.Context, month time.Time) (RunSummary, error) {
	month = period.MonthStart(month)
	summary := RunSummary{Month: month}

	err := s.runJob(parent, JobMonthlyInvoices, s.cfg.JobTimeout, month, func(ctx context.Context, run *jobRun) error {
		var genErr error
		summary, genErr = s.generateMonth(ctx, run, month)
		return genErr
	})
	return summary, err
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	month time.Time,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(s.withLogContext(parent, 0), timeout)
	defer cancel()

	key := fmt.Sprintf(lockKeyFormat, name, period.Format(month))
	token, acquired, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.metrics.IncJobError(name, err)
		return fmt.Errorf("%s: acquire lock: %w", name, err)
	}
	if !acquired {
		s.metrics.IncJobSkipped(name)
		s.logger(ctx).Info("scheduler.job.skipped",
			zap.String("job", name),
			zap.String("reason", obsmetrics.SchedulerJobReasonLockHeld),
		)
		return nil
	}
	defer func() {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), key, token); releaseErr != nil {
			s.log.Warn("release scheduler lock failed", zap.String("key", key), zap.Error(releaseErr))
		}
	}()

	run := s.newJobRun(name)
	s.logJobStart(ctx, run, month)
	s.metrics.IncJobRun(name)

	err = fn(ctx, run)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) generateMonth(ctx context.Context, run *jobRun, month time.Time) (RunSummary, error) {
	summary := RunSummary{Month: month}

	orgIDs, err := s.orgSvc.ListIDs(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.orgs.list.failed", 0, err)
		return summary, err
	}

	var jobErr error
	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			return summary, errors.Join(jobErr, err)
		}
		summary.Orgs++

		outcome, err := s.generateOrg(ctx, run, orgID, month, &summary)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
		}
		s.metrics.IncOrgProcessed(JobMonthlyInvoices, outcome)
	}
	return summary, jobErr
}

// generateOrg bills every property of the organization; property owners are
// the invoiced parties, so no org-wide invoice is produced by the run.
func (s *Scheduler) generateOrg(ctx context.Context, run *jobRun, orgID snowflake.ID, month time.Time, summary *RunSummary) (string, error) {
	ctx = s.withLogContext(ctx, orgID)

	if err := s.authorizeSystem(ctx, orgID); err != nil {
		summary.Failed++
		s.logSchedulerError(ctx, run, "scheduler.authorize.failed", orgID, err)
		return obsmetrics.SchedulerOutcomeFailed, err
	}

	properties, err := s.propertySvc.List(ctx, orgID)
	if err != nil {
		summary.Failed++
		s.logSchedulerError(ctx, run, "scheduler.properties.list.failed", orgID, err)
		return obsmetrics.SchedulerOutcomeFailed, err
	}

	outcome := obsmetrics.SchedulerOutcomeExisting
	var orgErr error
	for _, property := range properties {
		result, err := s.invoiceSvc.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{
			OrgID:       orgID,
			Month:       month,
			PropertyID:  property.ID,
			GeneratedBy: generatedBy,
		})
		if err != nil {
			summary.Failed++
			orgErr = errors.Join(orgErr, err)
			s.logSchedulerError(ctx, run, "scheduler.invoice.generate.failed", orgID, err,
				zap.String("property_id", idString(property.ID)),
			)
			continue
		}
		run.AddProcessed(1)
		if !result.Created {
			summary.Existing++
			continue
		}
		summary.Created++
		outcome = obsmetrics.SchedulerOutcomeCreated
		s.logger(ctx).Info("invoice.generated",
			zap.String("invoice_id", result.Invoice.ID.String()),
			zap.String("invoice_number", result.Invoice.InvoiceNumber),
			zap.String("property_id", idString(property.ID)),
		)
		s.notify(ctx, result.Invoice)
	}
	if orgErr != nil {
		outcome = obsmetrics.SchedulerOutcomeFailed
	}
	return outcome, orgErr
}

func (s *Scheduler) notify(ctx context.Context, invoice invoicedomain.Invoice) {
	if !s.billing.Get().NotifyOnCreate {
		return
	}
	if err := s.invoiceSvc.NotifyCreated(ctx, invoice); err != nil {
		s.logger(ctx).Warn("invoice notification failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Scheduler) authorizeSystem(ctx context.Context, orgID snowflake.ID) error {
	if s.authzSvc == nil {
		return nil
	}
	return s.authzSvc.Authorize(ctx, "system", orgID.String(), authorization.ObjectInvoice, authorization.ActionInvoiceGenerate)
}
