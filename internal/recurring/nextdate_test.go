package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyflow/pennyflow/internal/model"
)

func TestNextRecurringDate(t *testing.T) {
	base := time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval model.RecurringInterval
		want     time.Time
	}{
		{"daily", model.IntervalDaily, time.Date(2025, time.March, 16, 10, 30, 0, 0, time.UTC)},
		{"weekly is exactly seven days", model.IntervalWeekly, time.Date(2025, time.March, 22, 10, 30, 0, 0, time.UTC)},
		{"monthly", model.IntervalMonthly, time.Date(2025, time.April, 15, 10, 30, 0, 0, time.UTC)},
		{"yearly", model.IntervalYearly, time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRecurringDate(tt.interval, base)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNextRecurringDate_UnknownIntervalStopsRecurrence(t *testing.T) {
	got := NextRecurringDate(model.RecurringInterval("FORTNIGHTLY"), time.Now())
	assert.Nil(t, got)
}

func TestNextRecurringDate_MonthEndClamping(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month to Mar 2/3; the schedule still
	// advances rather than stalling.
	base := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	got := NextRecurringDate(model.IntervalMonthly, base)
	require.NotNil(t, got)
	assert.True(t, got.After(base))
}
