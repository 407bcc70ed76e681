package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	month := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, month, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-202503-00042", got)

	got, err = FormatInvoiceNumber("PB-{YY}-{SEQ}", month, 7)
	require.NoError(t, err)
	assert.Equal(t, "PB-25-7", got)
}

func TestFormatInvoiceNumberRejectsBadInput(t *testing.T) {
	month := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := FormatInvoiceNumber("", month, 1)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, month, 0)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("INV-{UNKNOWN}-{SEQ}", month, 1)
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{90000, "USD", "USD 900.00"},
		{123456789, "usd", "USD 1,234,567.89"},
		{-330000, "EUR", "EUR -3,300.00"},
		{5, "", "USD 0.05"},
		{150000, "JPY", "JPY 150,000"},
		{0, "GBP", "GBP 0.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAmount(tc.minor, tc.currency))
	}
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "9.7%", FormatRate(decimal.RequireFromString("0.0968")))
	assert.Equal(t, "100.0%", FormatRate(decimal.NewFromInt(1)))
}
