package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyflow/pennyflow/internal/api/middleware"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/logger"
	"github.com/pennyflow/pennyflow/internal/model"
	"github.com/pennyflow/pennyflow/internal/recurring"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store *ledger.Store
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(store *ledger.Store) *TransactionsHandler {
	return &TransactionsHandler{store: store}
}

type createTransactionRequest struct {
	AccountID         string `json:"account_id"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Description       string `json:"description"`
	Date              string `json:"date"` // RFC 3339 or YYYY-MM-DD
	Category          string `json:"category"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	txType := model.TransactionType(req.Type)
	if txType != model.TransactionTypeIncome && txType != model.TransactionTypeExpense {
		middleware.WriteError(w, http.StatusBadRequest, "Type must be INCOME or EXPENSE")
		return
	}

	// Validation happens before any write.
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date")
		return
	}
	if req.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Category is required")
		return
	}

	params := ledger.CreateTransactionParams{
		AccountID:   accountID,
		Type:        txType,
		Amount:      amount,
		Description: req.Description,
		Date:        date,
		Category:    req.Category,
		IsRecurring: req.IsRecurring,
	}

	if req.IsRecurring {
		interval := model.RecurringInterval(req.RecurringInterval)
		next := recurring.NextRecurringDate(interval, date)
		if next == nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid recurring interval")
			return
		}
		params.RecurringInterval = &interval
		params.NextRecurringDate = next
	}

	txn, err := h.store.CreateTransaction(r.Context(), user.ID, params)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Account not found")
		return
	}
	if errors.Is(err, ledger.ErrInvalidAmount) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, txn)
}

type bulkDeleteRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
}

// BulkDelete handles POST /api/transactions/bulk-delete
func (h *TransactionsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.TransactionIDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_ids is required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.TransactionIDs))
	for _, raw := range req.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
			return
		}
		ids = append(ids, id)
	}

	err := h.store.BulkDeleteTransactions(r.Context(), user.ID, ids)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "One or more transactions not found")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("Failed to delete transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": len(ids),
	})
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
