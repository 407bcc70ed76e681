package fee

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMarchScenario(t *testing.T) {
	b := Calculate(500000, 80000, 18)
	assert.Equal(t, int64(90000), b.FeeMinor)
	assert.Equal(t, int64(330000), b.NetMinor)
	assert.Equal(t, int64(500000), b.GrossMinor)
	assert.Equal(t, 18, b.Percent)
}

func TestComputeFeeFloors(t *testing.T) {
	cases := []struct {
		gross   int64
		percent int
		want    int64
	}{
		{gross: 0, percent: 12, want: 0},
		{gross: 1, percent: 12, want: 0},
		{gross: 9, percent: 12, want: 1},
		{gross: 999, percent: 22, want: 219},
		{gross: -5000, percent: 18, want: 0},
		{gross: 5000, percent: 0, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeFee(tc.gross, tc.percent), "gross=%d percent=%d", tc.gross, tc.percent)
	}
}

func TestComputeFeeMonotonicAndBounded(t *testing.T) {
	for _, percent := range []int{12, 18, 22} {
		prev := int64(0)
		for gross := int64(0); gross <= 20000; gross += 37 {
			got := ComputeFee(gross, percent)
			require.GreaterOrEqual(t, got, prev)
			require.LessOrEqual(t, got*100, gross*int64(percent))
			require.Greater(t, (got+1)*100, gross*int64(percent))
			prev = got
		}
	}
}

func TestComputeFeeLargeGrossDoesNotOverflow(t *testing.T) {
	got := ComputeFee(math.MaxInt64, 22)
	assert.Equal(t, int64(math.MaxInt64/100*22+(math.MaxInt64%100)*22/100), got)
	assert.Positive(t, got)
}

func TestNetRevenueCanBeNegative(t *testing.T) {
	assert.Equal(t, int64(-1200), NetRevenue(1000, 2000, 200))
}

func TestValidatePercent(t *testing.T) {
	assert.NoError(t, ValidatePercent(0))
	assert.NoError(t, ValidatePercent(100))
	assert.ErrorIs(t, ValidatePercent(-1), ErrInvalidPercent)
	assert.ErrorIs(t, ValidatePercent(101), ErrInvalidPercent)
}
