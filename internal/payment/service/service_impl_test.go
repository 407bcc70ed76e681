package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInvoice(t *testing.T) (*enginetest.Engine, snowflake.ID, snowflake.ID) {
	t.Helper()

	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "Payments Org")
	property := e.CreateProperty(t, org.ID, 0, "Loft")
	e.AddEntry(t, org.ID, property.ID, 500000, enginetest.Date(2025, time.March, 2))

	result, err := e.Invoices.GenerateOrFetch(context.Background(), invoicedomain.GenerateRequest{
		OrgID: org.ID, Month: enginetest.Date(2025, time.March, 1), PropertyID: property.ID,
	})
	require.NoError(t, err)
	return e, org.ID, result.Invoice.ID
}

func TestApplyPaymentValidation(t *testing.T) {
	e, orgID, invoiceID := setupInvoice(t)
	ctx := context.Background()

	_, err := e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: invoiceID, AmountMinor: 0, Method: "bank"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: invoiceID, AmountMinor: -5, Method: "bank"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: invoiceID, AmountMinor: 100, Method: "crypto"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: e.Node.Generate(), AmountMinor: 100, Method: "cash"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	stored, err := e.Invoices.Get(ctx, orgID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, stored.Status)
}

func TestApplyAndRemovePayments(t *testing.T) {
	e, orgID, invoiceID := setupInvoice(t)
	ctx := context.Background()

	paid, err := e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: invoiceID, AmountMinor: 30000, Method: "bank"})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: invoiceID, AmountMinor: 30000, Method: "Card"})
	require.NoError(t, err)

	payments, err := e.Payments.List(ctx, orgID, invoiceID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, enginetest.Date(2025, time.April, 10), payments[0].PaymentDate.UTC())

	stillPaid, err := e.Payments.RemovePayment(ctx, orgID, payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, stillPaid.Status)

	due, err := e.Payments.RemovePayment(ctx, orgID, payments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, due.Status)
	assert.Nil(t, due.PaidAt)

	_, err = e.Payments.RemovePayment(ctx, orgID, payments[1].ID)
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}

func TestApplyPaymentOnVoidInvoiceMarksPaid(t *testing.T) {
	e, orgID, invoiceID := setupInvoice(t)
	ctx := context.Background()

	_, err := e.Invoices.SetStatus(ctx, orgID, invoiceID, invoicedomain.InvoiceStatusVoid)
	require.NoError(t, err)

	paidOn := enginetest.Date(2025, time.April, 2)
	paid, err := e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{
		OrgID: orgID, InvoiceID: invoiceID, AmountMinor: 60000, Method: "other", PaymentDate: &paidOn,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)

	payments, err := e.Payments.List(ctx, orgID, invoiceID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, paidOn, payments[0].PaymentDate.UTC())
	assert.Equal(t, paymentdomain.MethodOther, payments[0].Method)
}

func TestRemovingLastPaymentOfVoidInvoiceRevertsToDue(t *testing.T) {
	e, orgID, invoiceID := setupInvoice(t)
	ctx := context.Background()

	_, err := e.Payments.ApplyPayment(ctx, paymentdomain.ApplyRequest{OrgID: orgID, InvoiceID: invoiceID, AmountMinor: 60000, Method: "bank"})
	require.NoError(t, err)
	voided, err := e.Invoices.SetStatus(ctx, orgID, invoiceID, invoicedomain.InvoiceStatusVoid)
	require.NoError(t, err)
	require.Equal(t, invoicedomain.InvoiceStatusVoid, voided.Status)

	payments, err := e.Payments.List(ctx, orgID, invoiceID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	due, err := e.Payments.RemovePayment(ctx, orgID, payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, due.Status)
	assert.Nil(t, due.PaidAt)
	assert.Nil(t, due.VoidedAt)

	stored, err := e.Invoices.Get(ctx, orgID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, stored.Status)
}
