package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoiceProducesPDF(t *testing.T) {
	provider := New()

	reader, err := provider.GenerateInvoice(context.Background(), InvoiceData{
		OrgName:       "Seaside Rentals",
		InvoiceNumber: "INV-202503-00001",
		IssueDate:     "2025-04-01",
		BillMonth:     "2025-03",
		Status:        "due",
		Lines: []InvoiceLine{
			{Label: "Gross revenue", Amount: "USD 5,000.00"},
			{Label: "Management fee (18%)", Amount: "USD 900.00"},
		},
		AmountDue: "USD 900.00",
	})
	require.NoError(t, err)

	raw, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, len(raw) > 4)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestGenerateInvoiceRequiresNumber(t *testing.T) {
	_, err := New().GenerateInvoice(context.Background(), InvoiceData{})
	assert.Error(t, err)
}
