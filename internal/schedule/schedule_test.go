package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestNextSixHourly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"mid morning", date(2025, time.July, 10, 8, 30), date(2025, time.July, 10, 12, 0)},
		{"exactly on boundary", date(2025, time.July, 10, 12, 0), date(2025, time.July, 10, 18, 0)},
		{"just past midnight", date(2025, time.July, 10, 0, 1), date(2025, time.July, 10, 6, 0)},
		{"late evening rolls over", date(2025, time.July, 10, 23, 59), date(2025, time.July, 11, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSixHourly(tt.now))
		})
	}
}

func TestNextDaily(t *testing.T) {
	assert.Equal(t,
		date(2025, time.July, 11, 0, 0),
		NextDaily(date(2025, time.July, 10, 15, 4)))

	// Exactly midnight schedules the following midnight.
	assert.Equal(t,
		date(2025, time.July, 11, 0, 0),
		NextDaily(date(2025, time.July, 10, 0, 0)))

	// Month rollover.
	assert.Equal(t,
		date(2025, time.August, 1, 0, 0),
		NextDaily(date(2025, time.July, 31, 9, 0)))
}

func TestNextMonthly(t *testing.T) {
	assert.Equal(t,
		date(2025, time.August, 1, 0, 0),
		NextMonthly(date(2025, time.July, 10, 15, 4)))

	// On the 1st itself the next run is a month out.
	assert.Equal(t,
		date(2025, time.September, 1, 0, 0),
		NextMonthly(date(2025, time.August, 1, 0, 0)))

	// Year rollover.
	assert.Equal(t,
		date(2026, time.January, 1, 0, 0),
		NextMonthly(date(2025, time.December, 15, 8, 0)))
}
