package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyflow/pennyflow/internal/model"
)

// UpsertBudget creates or replaces the user's single monthly budget amount.
func (s *Store) UpsertBudget(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Budget, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var budget model.Budget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&budget).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			budget = model.Budget{ID: uuid.New(), UserID: userID, Amount: amount}
			return tx.Create(&budget).Error
		case err != nil:
			return err
		default:
			budget.Amount = amount
			return tx.Model(&budget).Update("amount", amount).Error
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: UpsertBudget: %w", err)
	}
	return &budget, nil
}

// GetBudget returns the user's budget, or ErrNotFound.
func (s *Store) GetBudget(ctx context.Context, userID uuid.UUID) (*model.Budget, error) {
	var budget model.Budget
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: GetBudget: %w", err)
	}
	return &budget, nil
}

// ListBudgets returns every budget in the system. The monitor walks this on
// each cycle.
func (s *Store) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	var budgets []model.Budget
	if err := s.db.WithContext(ctx).Find(&budgets).Error; err != nil {
		return nil, fmt.Errorf("ledger: ListBudgets: %w", err)
	}
	return budgets, nil
}

// MarkBudgetAlerted persists the time the last threshold alert was sent.
func (s *Store) MarkBudgetAlerted(ctx context.Context, budgetID uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&model.Budget{}).
		Where("id = ?", budgetID).
		Update("last_alert_sent", at).Error
	if err != nil {
		return fmt.Errorf("ledger: MarkBudgetAlerted: %w", err)
	}
	return nil
}
