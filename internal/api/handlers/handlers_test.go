package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pennyflow/pennyflow/internal/api/middleware"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/model"
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Store) {
	srv, store, _ := newTestServerDB(t)
	return srv, store
}

func newTestServerDB(t *testing.T) (*httptest.Server, *ledger.Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store := ledger.New(db)
	require.NoError(t, store.Migrate())

	accounts := NewAccountsHandler(store)
	transactions := NewTransactionsHandler(store)
	budgets := NewBudgetsHandler(store)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/accounts", accounts.Create)
	mux.HandleFunc("GET /api/accounts", accounts.List)
	mux.HandleFunc("GET /api/accounts/{id}", accounts.Get)
	mux.HandleFunc("PUT /api/accounts/{id}/default", accounts.SetDefault)
	mux.HandleFunc("POST /api/transactions", transactions.Create)
	mux.HandleFunc("POST /api/transactions/bulk-delete", transactions.BulkDelete)
	mux.HandleFunc("GET /api/budget", budgets.Get)
	mux.HandleFunc("PUT /api/budget", budgets.Put)

	var handler http.Handler = middleware.Auth(store)(mux)
	handler = middleware.Logger(zerolog.Nop())(handler)
	handler = middleware.RequestID(handler)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, store, db
}

// doJSON issues an authenticated request and decodes the JSON response into
// out when out is non-nil.
func doJSON(t *testing.T, srv *httptest.Server, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Subject", "test-subject")
	req.Header.Set("X-Auth-Email", "test@example.com")
	req.Header.Set("X-Auth-Name", "Test User")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createAccount(t *testing.T, srv *httptest.Server, name, balance string, isDefault bool) model.Account {
	t.Helper()
	var account model.Account
	resp := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]interface{}{
		"name": name, "type": "CURRENT", "balance": balance, "is_default": isDefault,
	}, &account)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return account
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/accounts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer(t)

	// A generated id comes back when the caller sends none.
	resp := doJSON(t, srv, http.MethodGet, "/api/accounts", nil, nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	// A caller-supplied id is kept.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("X-Auth-Subject", "test-subject")
	req.Header.Set("X-Request-ID", "trace-me-123")

	resp2, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "trace-me-123", resp2.Header.Get("X-Request-ID"))
}

func TestAccountLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	first := createAccount(t, srv, "Checking", "100.00", false)
	assert.True(t, first.IsDefault, "first account becomes default")

	second := createAccount(t, srv, "Savings", "500.00", false)
	assert.False(t, second.IsDefault)

	var promoted model.Account
	resp := doJSON(t, srv, http.MethodPut, "/api/accounts/"+second.ID.String()+"/default", nil, &promoted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, promoted.IsDefault)

	var listed struct {
		Accounts []model.Account `json:"accounts"`
		Count    int             `json:"count"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/api/accounts", nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, listed.Count)

	defaults := 0
	for _, a := range listed.Accounts {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAccountValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"type": "CURRENT", "balance": "1"}},
		{"bad type", map[string]interface{}{"name": "x", "type": "OFFSHORE", "balance": "1"}},
		{"bad balance", map[string]interface{}{"name": "x", "type": "CURRENT", "balance": "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv, http.MethodPost, "/api/accounts", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := doJSON(t, srv, http.MethodPut, "/api/accounts/not-a-uuid/default", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTransactionAdjustsBalance(t *testing.T) {
	srv, _ := newTestServer(t)
	account := createAccount(t, srv, "Checking", "100.00", true)

	var txn model.Transaction
	resp := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": account.ID.String(),
		"type":       "EXPENSE",
		"amount":     "30.00",
		"date":       "2025-07-10",
		"category":   "groceries",
	}, &txn)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)

	var fetched model.Account
	resp = doJSON(t, srv, http.MethodGet, "/api/accounts/"+account.ID.String(), nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, fetched.Balance.Equal(dec("70.00")), "got %s", fetched.Balance)
	require.Len(t, fetched.Transactions, 1)
	assert.Equal(t, txn.ID, fetched.Transactions[0].ID)
}

func TestCreateRecurringTransaction(t *testing.T) {
	srv, _ := newTestServer(t)
	account := createAccount(t, srv, "Checking", "100.00", true)

	var txn model.Transaction
	resp := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id":         account.ID.String(),
		"type":               "EXPENSE",
		"amount":             "9.99",
		"date":               "2025-07-10",
		"category":           "subscriptions",
		"is_recurring":       true,
		"recurring_interval": "MONTHLY",
	}, &txn)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NotNil(t, txn.NextRecurringDate)
	assert.Equal(t, time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC), txn.NextRecurringDate.UTC())

	// An unknown interval is rejected before any write.
	resp = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id":         account.ID.String(),
		"type":               "EXPENSE",
		"amount":             "9.99",
		"date":               "2025-07-10",
		"category":           "subscriptions",
		"is_recurring":       true,
		"recurring_interval": "FORTNIGHTLY",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	account := createAccount(t, srv, "Checking", "100.00", true)

	base := func() map[string]interface{} {
		return map[string]interface{}{
			"account_id": account.ID.String(),
			"type":       "EXPENSE",
			"amount":     "10.00",
			"date":       "2025-07-10",
			"category":   "misc",
		}
	}

	tests := []struct {
		name   string
		mutate func(m map[string]interface{})
		status int
	}{
		{"negative amount", func(m map[string]interface{}) { m["amount"] = "-5.00" }, http.StatusBadRequest},
		{"bad amount", func(m map[string]interface{}) { m["amount"] = "ten" }, http.StatusBadRequest},
		{"bad type", func(m map[string]interface{}) { m["type"] = "TRANSFER" }, http.StatusBadRequest},
		{"bad date", func(m map[string]interface{}) { m["date"] = "July 10th" }, http.StatusBadRequest},
		{"missing category", func(m map[string]interface{}) { delete(m, "category") }, http.StatusBadRequest},
		{"unknown account", func(m map[string]interface{}) {
			m["account_id"] = "00000000-0000-0000-0000-000000000001"
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			resp := doJSON(t, srv, http.MethodPost, "/api/transactions", body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestBulkDeleteTransactions(t *testing.T) {
	srv, _ := newTestServer(t)
	account := createAccount(t, srv, "Checking", "100.00", true)

	ids := make([]string, 0, 2)
	for _, amount := range []string{"10.00", "20.00"} {
		var txn model.Transaction
		resp := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]interface{}{
			"account_id": account.ID.String(),
			"type":       "EXPENSE",
			"amount":     amount,
			"date":       "2025-07-10",
			"category":   "misc",
		}, &txn)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ids = append(ids, txn.ID.String())
	}

	var result struct {
		Deleted int `json:"deleted"`
	}
	resp := doJSON(t, srv, http.MethodPost, "/api/transactions/bulk-delete", map[string]interface{}{
		"transaction_ids": ids,
	}, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, result.Deleted)

	// Balance restored after the aggregate reversal.
	var fetched model.Account
	resp = doJSON(t, srv, http.MethodGet, "/api/accounts/"+account.ID.String(), nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, fetched.Balance.Equal(dec("100.00")), "got %s", fetched.Balance)

	// Deleting an id that no longer exists is a 404.
	resp = doJSON(t, srv, http.MethodPost, "/api/transactions/bulk-delete", map[string]interface{}{
		"transaction_ids": ids[:1],
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBudgetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/budget", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var saved model.Budget
	resp = doJSON(t, srv, http.MethodPut, "/api/budget", map[string]interface{}{"amount": "200.00"}, &saved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, saved.Amount.Equal(dec("200.00")))

	account := createAccount(t, srv, "Checking", "1000.00", true)
	resp = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]interface{}{
		"account_id": account.ID.String(),
		"type":       "EXPENSE",
		"amount":     "50.00",
		"date":       time.Now().Format("2006-01-02"),
		"category":   "misc",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got struct {
		Budget          model.Budget    `json:"budget"`
		CurrentExpenses decimal.Decimal `json:"current_expenses"`
		PercentUsed     float64         `json:"percent_used"`
	}
	resp = doJSON(t, srv, http.MethodGet, "/api/budget", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, saved.ID, got.Budget.ID)
	assert.True(t, got.CurrentExpenses.Equal(dec("50.00")), "got %s", got.CurrentExpenses)
	assert.InDelta(t, 25.0, got.PercentUsed, 0.001)

	resp = doJSON(t, srv, http.MethodPut, "/api/budget", map[string]interface{}{"amount": "-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBudgetGetSurfacesStoreFailure(t *testing.T) {
	srv, _, db := newTestServerDB(t)

	resp := doJSON(t, srv, http.MethodPut, "/api/budget", map[string]interface{}{"amount": "200.00"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A broken accounts table must surface as a 500, not read like "no
	// default account".
	require.NoError(t, db.Migrator().DropTable(&model.Account{}))

	resp = doJSON(t, srv, http.MethodGet, "/api/budget", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
