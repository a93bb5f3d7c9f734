// Package recurring schedules and processes recurring transaction templates:
// a dispatcher scans for due templates and fans them out as queue jobs, and a
// processor consumes each job inside one ledger transaction.
package recurring

import (
	"time"

	"github.com/pennyflow/pennyflow/internal/model"
)

// NextRecurringDate returns the next due date for a template processed at
// from. An unrecognized interval returns nil, which stops the recurrence:
// the template keeps its last_processed timestamp and is never selected as
// due again.
func NextRecurringDate(interval model.RecurringInterval, from time.Time) *time.Time {
	var next time.Time
	switch interval {
	case model.IntervalDaily:
		next = from.AddDate(0, 0, 1)
	case model.IntervalWeekly:
		next = from.AddDate(0, 0, 7)
	case model.IntervalMonthly:
		next = from.AddDate(0, 1, 0)
	case model.IntervalYearly:
		next = from.AddDate(1, 0, 0)
	default:
		return nil
	}
	return &next
}
