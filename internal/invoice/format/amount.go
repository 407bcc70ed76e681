package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
	"ISK": true,
}

// MinorExponent returns the number of minor-unit digits for currency.
func MinorExponent(currency string) int32 {
	if zeroDecimalCurrencies[normalizeCurrency(currency)] {
		return 0
	}
	return 2
}

// FormatAmount renders minor units as "USD 1,234.56".
func FormatAmount(amountMinor int64, currency string) string {
	code := normalizeCurrency(currency)
	places := MinorExponent(code)
	value := decimal.New(amountMinor, -places)

	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Abs()
	}

	fixed := value.StringFixed(places)
	whole, frac, _ := strings.Cut(fixed, ".")
	out := code + " " + sign + groupThousands(whole)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// FormatRate renders a fractional rate as a percentage with one decimal place.
func FormatRate(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func normalizeCurrency(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return "USD"
	}
	return code
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
