package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyflow/pennyflow/internal/api/middleware"
	"github.com/pennyflow/pennyflow/internal/ledger"
	"github.com/pennyflow/pennyflow/internal/logger"
	"github.com/pennyflow/pennyflow/internal/model"
)

// AccountsHandler handles account-related endpoints. Logging goes through
// the request-scoped logger placed in the context by the middleware chain.
type AccountsHandler struct {
	store *ledger.Store
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(store *ledger.Store) *AccountsHandler {
	return &AccountsHandler{store: store}
}

type createAccountRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"is_default"`
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	accountType := model.AccountType(req.Type)
	if accountType != model.AccountTypeCurrent && accountType != model.AccountTypeSavings {
		middleware.WriteError(w, http.StatusBadRequest, "Type must be CURRENT or SAVINGS")
		return
	}

	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid balance amount")
		return
	}

	account, err := h.store.CreateAccount(r.Context(), user.ID, ledger.CreateAccountParams{
		Name:           req.Name,
		Type:           accountType,
		Balance:        balance,
		RequestDefault: req.IsDefault,
	})
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("Failed to create account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, account)
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	accounts, err := h.store.ListAccounts(r.Context(), user.ID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("user_id", user.ID.String()).
			Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Get handles GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	account, err := h.store.GetAccountWithTransactions(r.Context(), user.ID, accountID)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("account_id", accountID.String()).
			Msg("Failed to get account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, account)
}

// SetDefault handles PUT /api/accounts/{id}/default
func (h *AccountsHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	account, err := h.store.SetDefaultAccount(r.Context(), user.ID, accountID)
	if errors.Is(err, ledger.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().
			Err(err).
			Str("account_id", accountID.String()).
			Msg("Failed to set default account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to set default account")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, account)
}
