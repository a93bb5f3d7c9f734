package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyflow/pennyflow/internal/model"
)

// NextDateFunc computes a template's next due date from the processing time
// and the template's interval. A nil result stops the recurrence.
type NextDateFunc func(interval model.RecurringInterval, from time.Time) *time.Time

// ListDueRecurring returns recurring templates that are due at now: never
// processed, or with a next due date at or before now. Only COMPLETED
// templates participate.
func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) ([]model.Transaction, error) {
	var templates []model.Transaction
	err := s.db.WithContext(ctx).
		Where("is_recurring = ? AND status = ?", true, model.TransactionStatusCompleted).
		Where("last_processed IS NULL OR next_recurring_date <= ?", now).
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: ListDueRecurring: %w", err)
	}
	return templates, nil
}

// ProcessRecurringOccurrence materializes one occurrence of a recurring
// template: it reschedules the template, inserts the generated transaction
// and applies its balance effect, all in one database transaction.
//
// The reschedule runs first as a conditional update gated on the same
// due-check the dispatcher used. Queue delivery is at-least-once and
// unordered, so two deliveries of the same template can race; whichever
// commits the conditional update first owns the occurrence, the other sees
// zero rows affected and returns ErrNotDue without writing anything.
func (s *Store) ProcessRecurringOccurrence(ctx context.Context, txnID, userID uuid.UUID, now time.Time, nextDate NextDateFunc) (*model.Transaction, error) {
	var occurrence *model.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template model.Transaction
		err := tx.Where("id = ? AND user_id = ?", txnID, userID).First(&template).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("fetching template: %w", err)
		}
		if !template.IsRecurring || template.RecurringInterval == nil {
			return ErrNotFound
		}

		var next *time.Time
		if nextDate != nil {
			next = nextDate(*template.RecurringInterval, now)
		}

		claim := tx.Model(&model.Transaction{}).
			Where("id = ? AND user_id = ?", txnID, userID).
			Where("last_processed IS NULL OR next_recurring_date <= ?", now).
			Updates(map[string]interface{}{
				"last_processed":      now,
				"next_recurring_date": next,
			})
		if claim.Error != nil {
			return fmt.Errorf("claiming template: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrNotDue
		}

		occurrence = &model.Transaction{
			ID:          uuid.New(),
			UserID:      template.UserID,
			AccountID:   template.AccountID,
			Type:        template.Type,
			Amount:      template.Amount,
			Description: template.Description + " (Recurring)",
			Date:        now,
			Category:    template.Category,
			Status:      model.TransactionStatusCompleted,
			IsRecurring: false,
		}
		if err := tx.Create(occurrence).Error; err != nil {
			return fmt.Errorf("creating occurrence: %w", err)
		}

		err = tx.Model(&model.Account{}).
			Where("id = ? AND user_id = ?", template.AccountID, userID).
			Update("balance", gorm.Expr("balance + ?", occurrence.SignedAmount())).Error
		if err != nil {
			return fmt.Errorf("adjusting balance: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotDue) {
			return nil, err
		}
		return nil, fmt.Errorf("ledger: ProcessRecurringOccurrence: %w", err)
	}
	return occurrence, nil
}
