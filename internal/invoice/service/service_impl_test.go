package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march2025 = enginetest.Date(2025, time.March, 1)

type marchFixture struct {
	engine     *enginetest.Engine
	orgID      snowflake.ID
	propertyID snowflake.ID
	ownerID    snowflake.ID
}

// setupMarch seeds gross 500000 and expenses 80000 in March 2025 for a
// property whose owner is on the elevate plan since January.
func setupMarch(t *testing.T, opts enginetest.Options) marchFixture {
	t.Helper()

	e := enginetest.New(t, opts)
	org := e.CreateOrg(t, "Seaside Rentals")
	ownerID := e.Node.Generate()
	property := e.CreateProperty(t, org.ID, ownerID, "Dune House")

	e.AddEntry(t, org.ID, property.ID, 300000, enginetest.Date(2025, time.March, 3))
	e.AddEntry(t, org.ID, property.ID, 200000, enginetest.Date(2025, time.March, 28))
	e.AddEntry(t, org.ID, property.ID, -80000, enginetest.Date(2025, time.March, 15))
	// Outside the window.
	e.AddEntry(t, org.ID, property.ID, 999999, enginetest.Date(2025, time.April, 1))

	e.SetPlan(t, org.ID, ownerID, feeplandomain.TierElevate, enginetest.Date(2025, time.January, 1))

	return marchFixture{engine: e, orgID: org.ID, propertyID: property.ID, ownerID: ownerID}
}

func TestGenerateOrFetchMarchScenario(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()

	result, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{
		OrgID:      f.orgID,
		Month:      enginetest.Date(2025, time.March, 17),
		PropertyID: f.propertyID,
	})
	require.NoError(t, err)
	require.True(t, result.Created)

	inv := result.Invoice
	assert.Equal(t, march2025, inv.BillMonth.UTC())
	assert.Equal(t, f.ownerID, inv.UserID)
	assert.EqualValues(t, 500000, inv.GrossRevenueMinor)
	assert.EqualValues(t, 80000, inv.ExpensesMinor)
	assert.Equal(t, 18, inv.FeePercent)
	assert.EqualValues(t, 90000, inv.FeeMinor)
	assert.EqualValues(t, 330000, inv.NetRevenueMinor)
	assert.EqualValues(t, 90000, inv.AmountDueMinor)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, inv.Status)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "INV-202503-00001", inv.InvoiceNumber)
	assert.Equal(t, "elevate", inv.Metadata["tier"])
	assert.Equal(t, false, inv.Metadata["defaulted"])
}

func TestGenerateOrFetchIsIdempotent(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()
	req := invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID}

	first, err := f.engine.Invoices.GenerateOrFetch(ctx, req)
	require.NoError(t, err)
	require.True(t, first.Created)

	// Data written after generation must not change the stored invoice.
	f.engine.AddEntry(t, f.orgID, f.propertyID, 100000, enginetest.Date(2025, time.March, 20))

	second, err := f.engine.Invoices.GenerateOrFetch(ctx, req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)
	assert.EqualValues(t, 90000, second.Invoice.AmountDueMinor)

	var count int64
	require.NoError(t, f.engine.DB.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGenerateOrFetchConcurrentCallsYieldOneInvoice(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()
	req := invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[snowflake.ID]int{}
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.engine.Invoices.GenerateOrFetch(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[result.Invoice.ID]++
			if result.Created {
				created++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)

	var count int64
	require.NoError(t, f.engine.DB.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var seq invoicedomain.InvoiceSequence
	require.NoError(t, f.engine.DB.Where("org_id = ?", f.orgID).First(&seq).Error)
	assert.EqualValues(t, 1, seq.LastValue)
}

func TestGenerateOrFetchIgnoresFuturePlans(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	f.engine.SetPlan(t, f.orgID, f.ownerID, feeplandomain.TierMaximize, enginetest.Date(2025, time.April, 1))

	result, err := f.engine.Invoices.GenerateOrFetch(context.Background(), invoicedomain.GenerateRequest{
		OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID,
	})
	require.NoError(t, err)
	assert.Equal(t, 18, result.Invoice.FeePercent)
	assert.EqualValues(t, 90000, result.Invoice.FeeMinor)
}

func TestGenerateOrFetchZeroDataMonth(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "Quiet Org")

	result, err := e.Invoices.GenerateOrFetch(context.Background(), invoicedomain.GenerateRequest{
		OrgID: org.ID, Month: enginetest.Date(2025, time.February, 1),
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.EqualValues(t, 0, result.Invoice.AmountDueMinor)
	assert.EqualValues(t, 0, result.Invoice.NetRevenueMinor)
	assert.Equal(t, 12, result.Invoice.FeePercent)
	assert.Equal(t, true, result.Invoice.Metadata["defaulted"])
	assert.Equal(t, snowflake.ID(0), result.Invoice.PropertyID)
	assert.Equal(t, snowflake.ID(0), result.Invoice.UserID)
}

func TestGenerateOrFetchNumbersSequentially(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()

	first, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID})
	require.NoError(t, err)
	second, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025})
	require.NoError(t, err)
	third, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: enginetest.Date(2025, time.April, 1)})
	require.NoError(t, err)

	assert.Equal(t, "INV-202503-00001", first.Invoice.InvoiceNumber)
	assert.Equal(t, "INV-202503-00002", second.Invoice.InvoiceNumber)
	assert.Equal(t, "INV-202504-00003", third.Invoice.InvoiceNumber)
}

func TestGenerateOrFetchCountsCompletedNights(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()

	_, err := f.engine.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: f.orgID, PropertyID: f.propertyID,
		CheckIn:  enginetest.Date(2025, time.March, 10),
		CheckOut: enginetest.Date(2025, time.March, 13),
		Status:   bookingdomain.BookingStatusCompleted,
	})
	require.NoError(t, err)
	_, err = f.engine.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		OrgID: f.orgID, PropertyID: f.propertyID,
		CheckIn:  enginetest.Date(2025, time.March, 20),
		CheckOut: enginetest.Date(2025, time.March, 25),
		Status:   bookingdomain.BookingStatusCancelled,
	})
	require.NoError(t, err)

	result, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{
		OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Invoice.Metadata["nights_booked"])
	assert.Equal(t, "0.0968", result.Invoice.Metadata["occupancy_rate"])
}

func TestSetStatusTransitions(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()

	result, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID})
	require.NoError(t, err)
	id := result.Invoice.ID

	_, err = f.engine.Invoices.SetStatus(ctx, f.orgID, id, invoicedomain.InvoiceStatusPaid)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatusTransition)

	same, err := f.engine.Invoices.SetStatus(ctx, f.orgID, id, invoicedomain.InvoiceStatusDue)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, same.Status)

	voided, err := f.engine.Invoices.SetStatus(ctx, f.orgID, id, invoicedomain.InvoiceStatusVoid)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusVoid, voided.Status)
	require.NotNil(t, voided.VoidedAt)

	reopened, err := f.engine.Invoices.SetStatus(ctx, f.orgID, id, invoicedomain.InvoiceStatusDue)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, reopened.Status)
	assert.Nil(t, reopened.VoidedAt)

	_, err = f.engine.Invoices.SetStatus(ctx, f.orgID, id, invoicedomain.InvoiceStatus("refunded"))
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatus)

	paid, err := f.engine.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{
		OrgID: f.orgID, InvoiceID: id, AmountMinor: 90000, Method: "bank",
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)

	_, err = f.engine.Invoices.SetStatus(ctx, f.orgID, id, invoicedomain.InvoiceStatusDue)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatusTransition)

	stored, err := f.engine.Invoices.Get(ctx, f.orgID, id)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, stored.Status)
}

func TestReapplyFee(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Reapply Org")
	property := e.CreateProperty(t, org.ID, 0, "Cabin")
	e.AddEntry(t, org.ID, property.ID, 500000, enginetest.Date(2025, time.March, 5))
	e.AddEntry(t, org.ID, property.ID, -80000, enginetest.Date(2025, time.March, 6))

	result, err := e.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: org.ID, Month: march2025, PropertyID: property.ID})
	require.NoError(t, err)
	assert.Equal(t, 12, result.Invoice.FeePercent)
	assert.EqualValues(t, 60000, result.Invoice.FeeMinor)

	e.SetPlan(t, org.ID, 0, feeplandomain.TierElevate, enginetest.Date(2025, time.January, 1))

	reapplied, err := e.Invoices.ReapplyFee(ctx, org.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.ReapplyResult{Scanned: 1, Updated: 1}, reapplied)

	stored, err := e.Invoices.Get(ctx, org.ID, result.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, 18, stored.FeePercent)
	assert.EqualValues(t, 90000, stored.FeeMinor)
	assert.EqualValues(t, 330000, stored.NetRevenueMinor)
	assert.EqualValues(t, 90000, stored.AmountDueMinor)
	assert.Equal(t, "elevate", stored.Metadata["tier"])

	again, err := e.Invoices.ReapplyFee(ctx, org.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Paging Org")

	var ids []snowflake.ID
	for _, m := range []time.Month{time.January, time.February, time.March} {
		result, err := e.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: org.ID, Month: enginetest.Date(2025, m, 1)})
		require.NoError(t, err)
		ids = append(ids, result.Invoice.ID)
	}

	req := invoicedomain.ListInvoiceRequest{OrgID: org.ID}
	req.PageSize = 2
	page, err := e.Invoices.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[2], page.Invoices[0].ID)
	assert.Equal(t, ids[1], page.Invoices[1].ID)

	req.PageToken = page.NextPageToken
	next, err := e.Invoices.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, next.Invoices, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, ids[0], next.Invoices[0].ID)

	req.PageToken = "not-a-token"
	_, err = e.Invoices.List(ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPageToken)
}

func TestDeleteRemovesPayments(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()

	result, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID})
	require.NoError(t, err)
	_, err = f.engine.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{
		OrgID: f.orgID, InvoiceID: result.Invoice.ID, AmountMinor: 90000, Method: "card",
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Invoices.Delete(ctx, f.orgID, result.Invoice.ID))

	_, err = f.engine.Invoices.Get(ctx, f.orgID, result.Invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	var payments int64
	require.NoError(t, f.engine.DB.Model(&paymentdomain.Payment{}).Count(&payments).Error)
	assert.EqualValues(t, 0, payments)

	assert.ErrorIs(t, f.engine.Invoices.Delete(ctx, f.orgID, result.Invoice.ID), invoicedomain.ErrInvoiceNotFound)
}

type recordingEmail struct {
	mu      sync.Mutex
	to      []string
	subject string
	body    string
}

func (r *recordingEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = to
	r.subject = subject
	r.body = htmlBody
	return nil
}

func TestNotifyCreatedSendsEmailAndMarksSent(t *testing.T) {
	mailer := &recordingEmail{}
	f := setupMarch(t, enginetest.Options{Email: mailer})
	ctx := context.Background()

	result, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID})
	require.NoError(t, err)

	require.NoError(t, f.engine.Invoices.NotifyCreated(ctx, result.Invoice))

	assert.Equal(t, []string{"billing@example.com"}, mailer.to)
	assert.Equal(t, "Invoice INV-202503-00001 for 2025-03", mailer.subject)
	assert.Contains(t, mailer.body, "USD 900.00")
	assert.Contains(t, mailer.body, "Dune House")
	assert.Contains(t, mailer.body, "https://portal.example.com/orgs/")

	stored, err := f.engine.Invoices.Get(ctx, f.orgID, result.Invoice.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.SentAt)
}

func TestRenderPDF(t *testing.T) {
	f := setupMarch(t, enginetest.Options{})
	ctx := context.Background()

	result, err := f.engine.Invoices.GenerateOrFetch(ctx, invoicedomain.GenerateRequest{OrgID: f.orgID, Month: march2025, PropertyID: f.propertyID})
	require.NoError(t, err)

	raw, err := f.engine.Invoices.RenderPDF(ctx, f.orgID, result.Invoice.ID)
	require.NoError(t, err)
	require.True(t, len(raw) > 4)
	assert.Equal(t, "%PDF", string(raw[:4]))
}
