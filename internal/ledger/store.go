// Package ledger is the relational store for users, accounts, transactions
// and budgets. Every multi-row write whose rows must stay mutually consistent
// (balance reconciliation, default-account flips, recurring processing) runs
// inside a single database transaction.
package ledger

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pennyflow/pennyflow/internal/model"
)

var (
	// ErrNotFound is returned when an entity does not exist or is not
	// owned by the requesting user.
	ErrNotFound = errors.New("ledger: not found")

	// ErrNotDue is returned when a recurring template was already
	// processed for the current cycle by a concurrent delivery.
	ErrNotDue = errors.New("ledger: recurring transaction not due")

	// ErrInvalidAmount is returned for negative or unparseable amounts.
	ErrInvalidAmount = errors.New("ledger: invalid amount")
)

// Store wraps a gorm DB handle with the application's ledger operations.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and returns a migrated Store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database: %w", err)
	}
	store := New(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// New wraps an existing gorm DB. Used by Open and by tests.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&model.User{},
		&model.Account{},
		&model.Transaction{},
		&model.Budget{},
	)
	if err != nil {
		return fmt.Errorf("ledger: migrating schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
