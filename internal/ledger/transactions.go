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

// CreateTransactionParams holds the caller-supplied fields for a new
// transaction. Amount must be non-negative; the type carries the sign.
type CreateTransactionParams struct {
	AccountID         uuid.UUID
	Type              model.TransactionType
	Amount            decimal.Decimal
	Description       string
	Date              time.Time
	Category          string
	IsRecurring       bool
	RecurringInterval *model.RecurringInterval
	NextRecurringDate *time.Time
}

// CreateTransaction inserts the transaction and applies its signed amount to
// the owning account's balance in one database transaction.
func (s *Store) CreateTransaction(ctx context.Context, userID uuid.UUID, params CreateTransactionParams) (*model.Transaction, error) {
	if params.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	txn := &model.Transaction{
		ID:                uuid.New(),
		UserID:            userID,
		AccountID:         params.AccountID,
		Type:              params.Type,
		Amount:            params.Amount,
		Description:       params.Description,
		Date:              params.Date,
		Category:          params.Category,
		Status:            model.TransactionStatusCompleted,
		IsRecurring:       params.IsRecurring,
		RecurringInterval: params.RecurringInterval,
		NextRecurringDate: params.NextRecurringDate,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account model.Account
		err := tx.Where("id = ? AND user_id = ?", params.AccountID, userID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("fetching account: %w", err)
		}

		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}

		err = tx.Model(&model.Account{}).
			Where("id = ? AND user_id = ?", params.AccountID, userID).
			Update("balance", gorm.Expr("balance + ?", txn.SignedAmount())).Error
		if err != nil {
			return fmt.Errorf("adjusting balance: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ledger: CreateTransaction: %w", err)
	}
	return txn, nil
}

// BulkDeleteTransactions removes the user's named transactions and applies
// the aggregate reversal of their balance effects per account. Deletions and
// balance adjustments share one database transaction; a failure anywhere
// leaves every row and balance untouched.
func (s *Store) BulkDeleteTransactions(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	// Repeated ids name the same row once.
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txns []model.Transaction
		err := tx.Where("id IN ? AND user_id = ?", unique, userID).Find(&txns).Error
		if err != nil {
			return fmt.Errorf("fetching transactions: %w", err)
		}
		if len(txns) != len(unique) {
			return ErrNotFound
		}

		// Reversal per account: the opposite of each transaction's
		// original effect, summed before any row is removed.
		reversals := make(map[uuid.UUID]decimal.Decimal)
		for _, t := range txns {
			reversals[t.AccountID] = reversals[t.AccountID].Sub(t.SignedAmount())
		}

		err = tx.Where("id IN ? AND user_id = ?", unique, userID).
			Delete(&model.Transaction{}).Error
		if err != nil {
			return fmt.Errorf("deleting transactions: %w", err)
		}

		for accountID, delta := range reversals {
			err := tx.Model(&model.Account{}).
				Where("id = ? AND user_id = ?", accountID, userID).
				Update("balance", gorm.Expr("balance + ?", delta)).Error
			if err != nil {
				return fmt.Errorf("adjusting balance for account %s: %w", accountID, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ledger: BulkDeleteTransactions: %w", err)
	}
	return nil
}

// SumExpenses sums the EXPENSE transactions on one account dated within
// [from, to].
func (s *Store) SumExpenses(ctx context.Context, userID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var txns []model.Transaction
	err := s.db.WithContext(ctx).
		Select("amount").
		Where("user_id = ? AND account_id = ? AND type = ? AND date >= ? AND date <= ?",
			userID, accountID, model.TransactionTypeExpense, from, to).
		Find(&txns).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: SumExpenses: %w", err)
	}

	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total, nil
}

// TransactionsInRange returns the user's transactions dated within [from, to]
// across all accounts.
func (s *Store) TransactionsInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: TransactionsInRange: %w", err)
	}
	return txns, nil
}
