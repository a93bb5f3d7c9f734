// Package schedule computes the fixed calendar triggers the periodic jobs
// run on. The jobs themselves are idempotent one-cycle entry points; this
// package only decides when to call them.
package schedule

import "time"

// NextSixHourly returns the next 00:00/06:00/12:00/18:00 boundary after now.
func NextSixHourly(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), (now.Hour()/6)*6, 0, 0, 0, now.Location())
	for !next.After(now) {
		next = next.Add(6 * time.Hour)
	}
	return next
}

// NextDaily returns the next midnight after now.
func NextDaily(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextMonthly returns the next first-of-month midnight after now.
func NextMonthly(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for !next.After(now) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}
