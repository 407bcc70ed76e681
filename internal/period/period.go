// Package period holds calendar-month helpers shared by KPI and invoice code.
// All values are UTC.
package period

import (
	"errors"
	"strings"
	"time"
)

const monthLayout = "2006-01"

var ErrInvalidMonth = errors.New("invalid_month")

// MonthStart normalizes t to the first instant of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth accepts "2025-03" or any RFC 3339 date/timestamp inside the month.
// A timestamp names the month of its own calendar date, whatever its offset.
func ParseMonth(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidMonth
	}
	for _, layout := range []string{monthLayout, time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidMonth
}

// Window returns the half-open range [month, month+1) containing t.
func Window(t time.Time) (time.Time, time.Time) {
	start := MonthStart(t)
	return start, start.AddDate(0, 1, 0)
}

// DaysInMonth returns the number of calendar days of the month containing t.
func DaysInMonth(t time.Time) int {
	start, end := Window(t)
	return int(end.Sub(start).Hours() / 24)
}

// Format renders the month as "2025-03".
func Format(t time.Time) string {
	return MonthStart(t).Format(monthLayout)
}

// LastMonths returns n month starts ending at the month of now, oldest first.
func LastMonths(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	current := MonthStart(now)
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = current.AddDate(0, i-(n-1), 0)
	}
	return months
}

// DateOnly truncates t to UTC midnight.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
