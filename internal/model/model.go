package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies the monetary direction of a transaction.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// TransactionStatus is the lifecycle state of a transaction row.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// RecurringInterval is the repeat cadence of a recurring transaction template.
type RecurringInterval string

const (
	IntervalDaily   RecurringInterval = "DAILY"
	IntervalWeekly  RecurringInterval = "WEEKLY"
	IntervalMonthly RecurringInterval = "MONTHLY"
	IntervalYearly  RecurringInterval = "YEARLY"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

// User is an application user. Authentication happens in an external identity
// provider; AuthSubject holds the provider's subject id that every request is
// resolved from.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AuthSubject string    `gorm:"uniqueIndex;not null" json:"-"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Accounts []Account `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
}

// Account is a monetary account owned by a user.
//
// Balance is a cached projection of the signed sum of the account's
// transactions; every write that changes that sum must adjust Balance in the
// same database transaction. At most one account per user carries IsDefault.
type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string          `gorm:"not null" json:"name"`
	Type      AccountType     `gorm:"not null" json:"type"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance"`
	IsDefault bool            `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}

// Transaction is a single ledger entry, or, when IsRecurring is set, a
// recurring template that the processor materializes occurrences from.
type Transaction struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	AccountID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"account_id"`
	Type        TransactionType   `gorm:"not null" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description string            `json:"description"`
	Date        time.Time         `gorm:"not null;index" json:"date"`
	Category    string            `gorm:"not null" json:"category"`
	Status      TransactionStatus `gorm:"not null;default:COMPLETED" json:"status"`

	IsRecurring       bool               `gorm:"not null;default:false;index" json:"is_recurring"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty"`
	LastProcessed     *time.Time         `json:"last_processed,omitempty"`
	NextRecurringDate *time.Time         `gorm:"index" json:"next_recurring_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Budget is a monthly spending cap. One per user.
type Budget struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SignedAmount returns the transaction's effect on its account balance:
// negative for expenses, positive for income.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
