package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/middleware"
	"github.com/atinyakov/GophBank/internal/models"
)

// AccountService defines the account and ledger operations required by
// AccountHandler.
type AccountService interface {
	Accounts(ctx context.Context, owner string) ([]models.Account, error)
	Account(ctx context.Context, id string) (models.Account, error)
	CreateAccount(ctx context.Context, owner string, n models.NewAccount) (models.Account, error)
	CloseAccount(ctx context.Context, id string) error
	Deposit(ctx context.Context, id string, amount decimal.Decimal, desc string) error
	Withdraw(ctx context.Context, id string, amount decimal.Decimal, desc string) error
	Transfer(context.Context, models.Transfer) error
	AccountTransactions(ctx context.Context, id string) ([]models.Transaction, error)
	UserTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// AccountHandler handles accounts, money movement and ledger queries.
type AccountHandler struct {
	// Accounts performs the underlying account operations.
	Accounts AccountService
}

// MovementRequest is the JSON payload of a deposit or withdrawal.
type MovementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// List returns the caller's accounts. Admins may pass all=true or user_id.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	c := middleware.ClaimsFromContext(r.Context())
	owner := c.UserID
	if c.IsAdmin() {
		q := r.URL.Query()
		switch {
		case q.Get("user_id") != "":
			owner = q.Get("user_id")
		case q.Get("all") == "true":
			owner = ""
		}
	}
	accounts, err := h.Accounts.Accounts(r.Context(), owner)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Get returns one account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.authorized(w, r, chi.URLParam(r, "accountID"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Create opens an account for the caller.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NewAccount
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Accounts.CreateAccount(r.Context(), middleware.ClaimsFromContext(r.Context()).UserID, req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":    "account created successfully",
		"account_id": a.ID,
	})
}

// Close deactivates an account with a zero balance.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	a, ok := h.authorized(w, r, chi.URLParam(r, "accountID"))
	if !ok {
		return
	}
	if err := h.Accounts.CloseAccount(r.Context(), a.ID); err != nil {
		fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "account closed successfully")
}

// Deposit credits an account.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Accounts.Deposit, "deposit successful")
}

// Withdraw debits an account.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Accounts.Withdraw, "withdrawal successful")
}

func (h *AccountHandler) move(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string, decimal.Decimal, string) error, done string) {
	a, ok := h.authorized(w, r, chi.URLParam(r, "accountID"))
	if !ok {
		return
	}
	var req MovementRequest
	if !decode(w, r, &req) {
		return
	}
	if err := op(r.Context(), a.ID, req.Amount, req.Description); err != nil {
		fail(w, err)
		return
	}
	a, err := h.Accounts.Account(r.Context(), a.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": done, "balance": a.Balance})
}

// Transfer moves money out of one of the caller's accounts.
func (h *AccountHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.Transfer
	if !decode(w, r, &req) {
		return
	}
	if req.FromAccountID == "" || req.ToAccountID == "" {
		writeError(w, http.StatusBadRequest, "from_account_id and to_account_id are required")
		return
	}
	from, err := h.Accounts.Account(r.Context(), req.FromAccountID)
	if err != nil {
		writeError(w, http.StatusNotFound, "source account not found")
		return
	}
	if !owns(r, from.OwnerID) {
		writeError(w, http.StatusForbidden, "unauthorized access to source account")
		return
	}
	if err := h.Accounts.Transfer(r.Context(), req); err != nil {
		fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "transfer successful")
}

// Transactions lists the ledger of one account.
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	a, ok := h.authorized(w, r, chi.URLParam(r, "accountID"))
	if !ok {
		return
	}
	txs, err := h.Accounts.AccountTransactions(r.Context(), a.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// UserTransactions lists the ledger of every account of the caller.
func (h *AccountHandler) UserTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Accounts.UserTransactions(r.Context(), middleware.ClaimsFromContext(r.Context()).UserID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// authorized loads an account the caller may act on, or writes the failure.
func (h *AccountHandler) authorized(w http.ResponseWriter, r *http.Request, id string) (models.Account, bool) {
	a, err := h.Accounts.Account(r.Context(), id)
	if err != nil {
		fail(w, err)
		return models.Account{}, false
	}
	if !owns(r, a.OwnerID) {
		writeError(w, http.StatusForbidden, "unauthorized access to account")
		return models.Account{}, false
	}
	return a, true
}
