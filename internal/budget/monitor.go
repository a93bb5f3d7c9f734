// Package budget watches monthly budgets and raises threshold alerts.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/model"
	"github.com/pennyflow/pennyflow/internal/notify"
)

// AlertThresholdPercent is the budget usage at which an alert fires.
const AlertThresholdPercent = 80.0

// Monitor aggregates month-to-date spending per budget and sends at most one
// threshold alert per budget per calendar month.
type Monitor struct {
	store  *ledger.Store
	mailer notify.Mailer
	log    zerolog.Logger
}

// NewMonitor creates a Monitor.
func NewMonitor(store *ledger.Store, mailer notify.Mailer, log zerolog.Logger) *Monitor {
	return &Monitor{
		store:  store,
		mailer: mailer,
		log:    log,
	}
}

// RunCycle checks every budget at now and returns how many alerts were sent.
// Budgets whose user has no default account are skipped. A failed send is
// not recorded as alerted, so the next cycle retries it.
func (m *Monitor) RunCycle(ctx context.Context, now time.Time) (int, error) {
	budgets, err := m.store.ListBudgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("budget: listing budgets: %w", err)
	}

	alerted := 0
	for _, b := range budgets {
		fired, err := m.checkBudget(ctx, b, now)
		if err != nil {
			m.log.Error().
				Err(err).
				Str("budget_id", b.ID.String()).
				Str("user_id", b.UserID.String()).
				Msg("Budget check failed")
			continue
		}
		if fired {
			alerted++
		}
	}

	m.log.Info().
		Int("budgets", len(budgets)).
		Int("alerted", alerted).
		Msg("Budget check cycle complete")

	return alerted, nil
}

func (m *Monitor) checkBudget(ctx context.Context, b model.Budget, now time.Time) (bool, error) {
	account, err := m.store.DefaultAccount(ctx, b.UserID)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	total, err := m.store.SumExpenses(ctx, b.UserID, account.ID, monthStart, now)
	if err != nil {
		return false, err
	}

	percentUsed := PercentUsed(total, b.Amount)
	if !ShouldAlert(percentUsed, b.LastAlertSent, now) {
		return false, nil
	}

	user, err := m.store.GetUser(ctx, b.UserID)
	if err != nil {
		return false, err
	}

	err = m.mailer.Send(ctx, notify.Message{
		To:       user.Email,
		Subject:  fmt.Sprintf("Budget Alert for %s", account.Name),
		Template: notify.TemplateBudgetAlert,
		Data: notify.BudgetAlertData{
			UserName:       user.Name,
			AccountName:    account.Name,
			PercentageUsed: percentUsed,
			BudgetAmount:   b.Amount.Round(0).IntPart(),
			TotalExpenses:  total.Round(0).IntPart(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("sending alert: %w", err)
	}

	if err := m.store.MarkBudgetAlerted(ctx, b.ID, now); err != nil {
		return false, err
	}

	m.log.Info().
		Str("budget_id", b.ID.String()).
		Str("account", account.Name).
		Float64("percent_used", percentUsed).
		Msg("Budget alert sent")

	return true, nil
}

// PercentUsed returns spending as a percentage of the budget amount.
// A zero or negative budget reads as fully used.
func PercentUsed(total, budgetAmount decimal.Decimal) float64 {
	if !budgetAmount.IsPositive() {
		return 100
	}
	percent, _ := total.Div(budgetAmount).Mul(decimal.NewFromInt(100)).Float64()
	return percent
}

// ShouldAlert reports whether an alert fires: usage at or past the threshold
// and no alert sent yet this calendar month.
func ShouldAlert(percentUsed float64, lastAlertSent *time.Time, now time.Time) bool {
	if percentUsed < AlertThresholdPercent {
		return false
	}
	if lastAlertSent == nil {
		return true
	}
	return lastAlertSent.Month() != now.Month() || lastAlertSent.Year() != now.Year()
}
