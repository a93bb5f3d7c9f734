package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennyflow/pennyflow/internal/api/middleware"
	"github.com/pennyflow/pennyflow/internal/budget"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/logger"
)

// BudgetsHandler handles the user's single monthly budget.
type BudgetsHandler struct {
	store *ledger.Store
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(store *ledger.Store) *BudgetsHandler {
	return &BudgetsHandler{store: store}
}

// Get handles GET /api/budget. The response includes current-month usage
// against the default account; a user without a default account gets the
// budget alone.
func (h *BudgetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	ctx := r.Context()
	log := logger.FromContext(ctx)

	b, err := h.store.GetBudget(ctx, user.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "No budget set")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to get budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get budget")
		return
	}

	response := map[string]interface{}{
		"budget": b,
	}

	account, err := h.store.DefaultAccount(ctx, user.ID)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		// No default account: nothing to aggregate against.
	case err != nil:
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to get default account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get budget")
		return
	default:
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		total, err := h.store.SumExpenses(ctx, user.ID, account.ID, monthStart, now)
		if err != nil {
			log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to sum expenses")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to get budget")
			return
		}
		response["current_expenses"] = total
		response["percent_used"] = budget.PercentUsed(total, b.Amount)
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

type putBudgetRequest struct {
	Amount string `json:"amount"`
}

// Put handles PUT /api/budget (upsert).
func (h *BudgetsHandler) Put(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req putBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	b, err := h.store.UpsertBudget(r.Context(), user.ID, amount)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("Failed to upsert budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save budget")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, b)
}
