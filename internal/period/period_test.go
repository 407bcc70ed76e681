package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseMonth("2025-03-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseMonth("2025-03-01T00:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseMonth("2025-03-31T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseMonth("March")
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = ParseMonth("")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, DaysInMonth(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, DaysInMonth(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWindowIsHalfOpen(t *testing.T) {
	start, end := Window(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestLastMonthsOldestFirst(t *testing.T) {
	months := LastMonths(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 3)
	require.Len(t, months, 3)
	assert.Equal(t, "2024-12", Format(months[0]))
	assert.Equal(t, "2025-01", Format(months[1]))
	assert.Equal(t, "2025-02", Format(months[2]))
	assert.Nil(t, LastMonths(time.Now(), 0))
}
