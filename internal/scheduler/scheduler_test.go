package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/propbill/internal/observability/metrics"
	"github.com/smallbiznis/propbill/internal/ratelimit"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingEmail struct {
	mu   sync.Mutex
	sent int
}

func (c *countingEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent++
	return nil
}

func (c *countingEmail) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

func newTestScheduler(t *testing.T, e *enginetest.Engine, locker ratelimit.RunLocker) (*Scheduler, *prometheus.Registry) {
	t.Helper()

	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "propbill", Environment: "test"})

	sched, err := New(Params{
		Log:         zap.NewNop(),
		GenID:       e.Node,
		Clock:       e.Clock,
		Billing:     e.Billing,
		OrgSvc:      e.Organizations,
		PropertySvc: e.Properties,
		InvoiceSvc:  e.Invoices,
		Locker:      locker,
		AuthzSvc:    e.Authz,
	})
	require.NoError(t, err)
	return sched, registry
}

func TestRunMonthlyBillsPreviousMonthPerProperty(t *testing.T) {
	mailer := &countingEmail{}
	e := enginetest.New(t, enginetest.Options{Email: mailer})
	org := e.CreateOrg(t, "Scheduled Org")
	villa := e.CreateProperty(t, org.ID, e.Node.Generate(), "Villa")
	loft := e.CreateProperty(t, org.ID, e.Node.Generate(), "Loft")
	e.AddEntry(t, org.ID, villa.ID, 500000, enginetest.Date(2025, time.March, 3))
	e.AddEntry(t, org.ID, loft.ID, 200000, enginetest.Date(2025, time.March, 20))

	sched, registry := newTestScheduler(t, e, ratelimit.NewMemoryLocker())

	require.NoError(t, sched.RunMonthly(context.Background()))

	list, err := e.Invoices.List(context.Background(), invoicedomain.ListInvoiceRequest{OrgID: org.ID})
	require.NoError(t, err)
	require.Len(t, list.Invoices, 2)
	for _, invoice := range list.Invoices {
		assert.Equal(t, enginetest.Date(2025, time.March, 1), invoice.BillMonth.UTC())
		assert.Equal(t, "scheduler", invoice.Metadata["generated_by"])
		assert.NotNil(t, invoice.SentAt)
	}
	assert.Equal(t, 2, mailer.count())

	labels := map[string]string{"service": "propbill", "env": "test", "job": JobMonthlyInvoices, "outcome": obsmetrics.SchedulerOutcomeCreated}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "propbill_scheduler_orgs_processed_total", labels))
}

func TestRunMonthIsIdempotent(t *testing.T) {
	mailer := &countingEmail{}
	e := enginetest.New(t, enginetest.Options{Email: mailer})
	org := e.CreateOrg(t, "Idempotent Org")
	property := e.CreateProperty(t, org.ID, 0, "Villa")
	e.AddEntry(t, org.ID, property.ID, 100000, enginetest.Date(2025, time.February, 14))

	sched, _ := newTestScheduler(t, e, ratelimit.NewMemoryLocker())
	month := enginetest.Date(2025, time.February, 1)

	first, err := sched.RunMonth(context.Background(), month)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Month: month, Orgs: 1, Created: 1}, first)

	second, err := sched.RunMonth(context.Background(), month)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Month: month, Orgs: 1, Existing: 1}, second)
	assert.Equal(t, 1, mailer.count())
}

func TestRunMonthSkipsWhenLockHeld(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "Locked Org")
	e.CreateProperty(t, org.ID, 0, "Villa")

	locker := ratelimit.NewMemoryLocker()
	_, ok, err := locker.TryLock(context.Background(), "propbill:scheduler:monthly_invoices:2025-03", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	sched, registry := newTestScheduler(t, e, locker)
	summary, err := sched.RunMonth(context.Background(), enginetest.Date(2025, time.March, 1))
	require.NoError(t, err)
	assert.Zero(t, summary.Created)

	list, err := e.Invoices.List(context.Background(), invoicedomain.ListInvoiceRequest{OrgID: org.ID})
	require.NoError(t, err)
	assert.Empty(t, list.Invoices)

	labels := map[string]string{"service": "propbill", "env": "test", "job": JobMonthlyInvoices}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "propbill_scheduler_job_skipped_total", labels))
}

func TestRunJobTimeoutDoesNotReturnErrorAndCountsError(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	sched, registry := newTestScheduler(t, e, ratelimit.NewMemoryLocker())

	err := sched.runJob(context.Background(), "timeout_job", 5*time.Millisecond, enginetest.Date(2025, time.March, 1), func(ctx context.Context, run *jobRun) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "propbill",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "propbill_scheduler_job_errors_total", labels))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
