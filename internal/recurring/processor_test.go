package recurring

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pennyflow/pennyflow/internal/jobs"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/model"
)

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "recurring.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := ledger.New(db)
	require.NoError(t, store.Migrate())
	return store
}

// seedTemplate creates a user, an account and one due recurring template.
func seedTemplate(t *testing.T, store *ledger.Store) (*model.User, *model.Account, *model.Transaction) {
	t.Helper()
	ctx := context.Background()

	user, err := store.ResolveUser(ctx, "sub-"+t.Name(), t.Name()+"@example.com", "Alex")
	require.NoError(t, err)

	account, err := store.CreateAccount(ctx, user.ID, ledger.CreateAccountParams{
		Name: "Checking", Type: model.AccountTypeCurrent, Balance: decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)

	interval := model.IntervalWeekly
	due := time.Now().Add(-time.Hour)
	template, err := store.CreateTransaction(ctx, user.ID, ledger.CreateTransactionParams{
		AccountID:         account.ID,
		Type:              model.TransactionTypeExpense,
		Amount:            decimal.RequireFromString("12.50"),
		Description:       "Gym",
		Date:              due.AddDate(0, 0, -7),
		Category:          "health",
		IsRecurring:       true,
		RecurringInterval: &interval,
		NextRecurringDate: &due,
	})
	require.NoError(t, err)
	return user, account, template
}

func TestDispatcher_PublishesDueTemplates(t *testing.T) {
	store := newTestStore(t)
	user, _, template := seedTemplate(t, store)

	pub := &capturePublisher{}
	d := NewDispatcher(store, pub, zerolog.Nop())

	published, err := d.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	require.Len(t, pub.jobs, 1)
	assert.Equal(t, template.ID, pub.jobs[0].TransactionID)
	assert.Equal(t, user.ID, pub.jobs[0].UserID)
}

func TestDispatcher_NothingDue(t *testing.T) {
	store := newTestStore(t)

	pub := &capturePublisher{}
	d := NewDispatcher(store, pub, zerolog.Nop())

	published, err := d.RunCycle(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, published)
	assert.Empty(t, pub.jobs)
}

func TestProcessor_MaterializesOccurrence(t *testing.T) {
	store := newTestStore(t)
	user, account, template := seedTemplate(t, store)

	p := NewProcessor(store, zerolog.Nop())
	now := time.Now()
	p.now = func() time.Time { return now }

	job := &jobs.ProcessRecurringJob{
		JobID:         "job-1",
		TransactionID: template.ID,
		UserID:        user.ID,
	}
	require.NoError(t, p.Handler()(context.Background(), job))

	// Occurrence exists with the adjusted balance.
	fetched, err := store.GetAccountWithTransactions(context.Background(), user.ID, account.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Balance.Equal(decimal.RequireFromString("475.00")), "got %s", fetched.Balance)
	require.Len(t, fetched.Transactions, 2)

	var occurrence *model.Transaction
	for i := range fetched.Transactions {
		if fetched.Transactions[i].ID != template.ID {
			occurrence = &fetched.Transactions[i]
		}
	}
	require.NotNil(t, occurrence)
	assert.Equal(t, "Gym (Recurring)", occurrence.Description)
	assert.False(t, occurrence.IsRecurring)

	// Duplicate delivery is a clean no-op.
	require.NoError(t, p.Process(context.Background(), job))
	fetched, err = store.GetAccountWithTransactions(context.Background(), user.ID, account.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Balance.Equal(decimal.RequireFromString("475.00")))
	assert.Len(t, fetched.Transactions, 2)
}

func TestProcessor_MissingTemplateIsNoOp(t *testing.T) {
	store := newTestStore(t)
	user, _, _ := seedTemplate(t, store)

	p := NewProcessor(store, zerolog.Nop())
	err := p.Process(context.Background(), &jobs.ProcessRecurringJob{
		JobID:         "job-missing",
		TransactionID: uuid.New(),
		UserID:        user.ID,
	})
	assert.NoError(t, err)
}

func TestProcessor_NotOwnedTemplateIsNoOp(t *testing.T) {
	store := newTestStore(t)
	_, account, template := seedTemplate(t, store)

	p := NewProcessor(store, zerolog.Nop())
	err := p.Process(context.Background(), &jobs.ProcessRecurringJob{
		JobID:         "job-foreign",
		TransactionID: template.ID,
		UserID:        uuid.New(),
	})
	assert.NoError(t, err)

	// The template owner's balance is untouched.
	owner := template.UserID
	fetched, err := store.GetAccountWithTransactions(context.Background(), owner, account.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Balance.Equal(decimal.RequireFromString("500.00")))
}

type capturePublisher struct {
	jobs []*jobs.ProcessRecurringJob
}

func (c *capturePublisher) PublishProcessRecurring(ctx context.Context, job *jobs.ProcessRecurringJob) error {
	c.jobs = append(c.jobs, job)
	return nil
}

func (c *capturePublisher) Close() error { return nil }
