package quota_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agromonitor/copernicus/pkg/quota"
)

func TestRemainingCounters(t *testing.T) {
	st := &quota.State{
		MonthlyLimitPU:       10000,
		MonthlyLimitRequests: 10000,
		ProcessingUnitsUsed:  1200,
		RequestsUsed:         45,
	}

	assert.Equal(t, 8800, quota.RemainingPU(st))
	assert.Equal(t, 9955, quota.RemainingRequests(st))
	assert.InDelta(t, 12.0, quota.PercentUsed(st), 0.001)
}

func TestPercentUsed_ZeroLimit(t *testing.T) {
	st := &quota.State{MonthlyLimitPU: 0, ProcessingUnitsUsed: 10}
	assert.Equal(t, 0.0, quota.PercentUsed(st))
}

func TestDaysRemainingInMonth(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{
			name: "mid month",
			now:  time.Date(2025, time.March, 21, 0, 0, 0, 0, time.UTC),
			want: 11,
		},
		{
			name: "late december counts down to january",
			now:  time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC),
			want: 12,
		},
		{
			name: "last day of year",
			now:  time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
			want: 1,
		},
		{
			name: "partial last day rounds down to zero",
			now:  time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quota.DaysRemainingInMonth(tt.now))
		})
	}
}

func TestSafeDailyPU(t *testing.T) {
	st := &quota.State{MonthlyLimitPU: 10000, ProcessingUnitsUsed: 7000}

	// 3000 PU remaining, 10 whole days to April 1.
	now := time.Date(2025, time.March, 22, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 300, quota.SafeDailyPU(st, now))

	// No whole day left: no division by zero, advisory is 0.
	now = time.Date(2025, time.March, 31, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, quota.SafeDailyPU(st, now))
}

func TestOperationEstimatedCost(t *testing.T) {
	assert.Equal(t, 50, quota.OpMapRGB.EstimatedCost())
	assert.Equal(t, 50, quota.OpMapNDVI.EstimatedCost())
	assert.Equal(t, 30, quota.OpNDVI.EstimatedCost())
	assert.Equal(t, 30, quota.OpNDWI.EstimatedCost())
	assert.Equal(t, 30, quota.OpNDSI.EstimatedCost())
	assert.Equal(t, 40, quota.OpZonalStats.EstimatedCost())

	// Unknown kinds fall back to the default estimate.
	assert.Equal(t, quota.DefaultOperationCost, quota.Operation("thermal").EstimatedCost())
}

func TestModeEstimatedCost(t *testing.T) {
	assert.Equal(t, 220, quota.ModeNormal.EstimatedCost())
	assert.Equal(t, 90, quota.ModeEconomic.EstimatedCost())
	assert.Equal(t, 30, quota.ModeMinimal.EstimatedCost())
}

func TestParseMode(t *testing.T) {
	m, err := quota.ParseMode("economic")
	assert.NoError(t, err)
	assert.Equal(t, quota.ModeEconomic, m)

	_, err = quota.ParseMode("turbo")
	assert.ErrorIs(t, err, quota.ErrUnknownMode)
}
