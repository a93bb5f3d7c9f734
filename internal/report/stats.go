// Package report builds per-user monthly financial reports: previous-month
// aggregates, a generative-text insight list, and an email dispatch, with
// optional archive and analytics export.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/model"
)

// MonthlyStats aggregates one user's transactions for one calendar month.
type MonthlyStats struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	ByCategory       map[string]decimal.Decimal
	TransactionCount int
}

// NetIncome is income minus expenses.
func (s MonthlyStats) NetIncome() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpenses)
}

// MonthBounds returns the first and last instant of the calendar month
// containing t.
func MonthBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// ComputeMonthlyStats aggregates the user's transactions dated within the
// calendar month containing month.
func ComputeMonthlyStats(ctx context.Context, store *ledger.Store, userID uuid.UUID, month time.Time) (MonthlyStats, error) {
	start, end := MonthBounds(month)

	txns, err := store.TransactionsInRange(ctx, userID, start, end)
	if err != nil {
		return MonthlyStats{}, fmt.Errorf("report: fetching transactions: %w", err)
	}

	return Aggregate(txns), nil
}

// Aggregate folds transactions into monthly stats. Expenses additionally
// break down per category.
func Aggregate(txns []model.Transaction) MonthlyStats {
	stats := MonthlyStats{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		ByCategory:       make(map[string]decimal.Decimal),
		TransactionCount: len(txns),
	}
	for _, t := range txns {
		if t.Type == model.TransactionTypeExpense {
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
			stats.ByCategory[t.Category] = stats.ByCategory[t.Category].Add(t.Amount)
		} else {
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		}
	}
	return stats
}
