// Package fee computes management fees and net revenue in integer minor units.
package fee

import (
	"errors"
	"math"
	"math/bits"
)

// ErrInvalidPercent is returned for a fee percent outside [0, 100].
var ErrInvalidPercent = errors.New("invalid_fee_percent")

// Breakdown is the fee split of one month of revenue.
type Breakdown struct {
	GrossMinor    int64 `json:"gross_revenue_minor"`
	ExpensesMinor int64 `json:"expenses_minor"`
	Percent       int   `json:"fee_percent"`
	FeeMinor      int64 `json:"management_fee_minor"`
	NetMinor      int64 `json:"net_revenue_minor"`
}

// ValidatePercent rejects percents outside [0, 100].
func ValidatePercent(percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidPercent
	}
	return nil
}

// ComputeFee returns floor(gross * percent / 100). A non-positive gross yields 0.
// The product is computed in 128 bits so large ledgers cannot overflow.
func ComputeFee(grossMinor int64, percent int) int64 {
	if grossMinor <= 0 || percent <= 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	hi, lo := bits.Mul64(uint64(grossMinor), uint64(percent))
	quo, _ := bits.Div64(hi, lo, 100)
	if quo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(quo)
}

// NetRevenue is gross - expenses - fee. It may be negative.
func NetRevenue(grossMinor, expensesMinor, feeMinor int64) int64 {
	return grossMinor - expensesMinor - feeMinor
}

// Calculate produces the full breakdown for a month.
func Calculate(grossMinor, expensesMinor int64, percent int) Breakdown {
	feeMinor := ComputeFee(grossMinor, percent)
	return Breakdown{
		GrossMinor:    grossMinor,
		ExpensesMinor: expensesMinor,
		Percent:       percent,
		FeeMinor:      feeMinor,
		NetMinor:      NetRevenue(grossMinor, expensesMinor, feeMinor),
	}
}
