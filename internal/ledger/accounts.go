package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyflow/pennyflow/internal/model"
)

// CreateAccountParams holds the caller-supplied fields for a new account.
type CreateAccountParams struct {
	Name           string
	Type           model.AccountType
	Balance        decimal.Decimal
	RequestDefault bool
}

// CreateAccount creates an account for the user. The user's first account
// always becomes the default; otherwise the account is default only when
// explicitly requested, in which case all existing defaults are cleared
// first. The clear and the insert share one database transaction so a
// concurrent reader never observes zero or two defaults.
func (s *Store) CreateAccount(ctx context.Context, userID uuid.UUID, params CreateAccountParams) (*model.Account, error) {
	account := &model.Account{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    params.Name,
		Type:    params.Type,
		Balance: params.Balance,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Account{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("counting accounts: %w", err)
		}

		account.IsDefault = count == 0 || params.RequestDefault
		if account.IsDefault {
			err := tx.Model(&model.Account{}).
				Where("user_id = ? AND is_default = ?", userID, true).
				Update("is_default", false).Error
			if err != nil {
				return fmt.Errorf("clearing defaults: %w", err)
			}
		}

		if err := tx.Create(account).Error; err != nil {
			return fmt.Errorf("creating account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: CreateAccount: %w", err)
	}
	return account, nil
}

// SetDefaultAccount makes the named account the user's only default.
// Clear-then-set runs in one database transaction so the "exactly one
// default" invariant is never transiently violated.
func (s *Store) SetDefaultAccount(ctx context.Context, userID, accountID uuid.UUID) (*model.Account, error) {
	var account model.Account

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("fetching account: %w", err)
		}

		err = tx.Model(&model.Account{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error
		if err != nil {
			return fmt.Errorf("clearing defaults: %w", err)
		}

		err = tx.Model(&model.Account{}).
			Where("id = ? AND user_id = ?", accountID, userID).
			Update("is_default", true).Error
		if err != nil {
			return fmt.Errorf("setting default: %w", err)
		}
		account.IsDefault = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ledger: SetDefaultAccount: %w", err)
	}
	return &account, nil
}

// ListAccounts returns all of the user's accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]model.Account, error) {
	var accounts []model.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: ListAccounts: %w", err)
	}
	return accounts, nil
}

// GetAccountWithTransactions returns the account and its transactions,
// newest first.
func (s *Store) GetAccountWithTransactions(ctx context.Context, userID, accountID uuid.UUID) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC")
		}).
		Where("id = ? AND user_id = ?", accountID, userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: GetAccountWithTransactions: %w", err)
	}
	return &account, nil
}

// DefaultAccount returns the user's default account, or ErrNotFound when the
// user has none.
func (s *Store) DefaultAccount(ctx context.Context, userID uuid.UUID) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: DefaultAccount: %w", err)
	}
	return &account, nil
}
