package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/middleware"
	"github.com/atinyakov/GophBank/internal/models"
)

// LoanService defines the loan operations required by LoanHandler.
type LoanService interface {
	Loans(ctx context.Context, userID string) ([]models.Loan, error)
	Loan(ctx context.Context, id string) (models.Loan, error)
	Apply(ctx context.Context, userID string, a models.LoanApplication) (models.Loan, error)
	Payment(ctx context.Context, id string) (decimal.Decimal, error)
	Pay(ctx context.Context, loanID string, amount decimal.Decimal, accountID string) (decimal.Decimal, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
}

// LoanHandler handles loan applications, payments and reviews.
type LoanHandler struct {
	// Loans performs the underlying loan operations.
	Loans LoanService
}

// PaymentRequest is the JSON payload of a loan payment.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	AccountID string          `json:"account_id"`
}

// List returns the caller's loans. Admins may pass all=true.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	c := middleware.ClaimsFromContext(r.Context())
	owner := c.UserID
	if c.IsAdmin() && r.URL.Query().Get("all") == "true" {
		owner = ""
	}
	loans, err := h.Loans.Loans(r.Context(), owner)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loans": loans})
}

// Get returns one loan.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, ok := h.authorized(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Apply submits a loan application for the caller.
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req models.LoanApplication
	if !decode(w, r, &req) {
		return
	}
	l, err := h.Loans.Apply(r.Context(), middleware.ClaimsFromContext(r.Context()).UserID, req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "loan application submitted successfully",
		"loan_id": l.ID,
	})
}

// PaymentAmount returns the monthly payment of a loan.
func (h *LoanHandler) PaymentAmount(w http.ResponseWriter, r *http.Request) {
	l, ok := h.authorized(w, r)
	if !ok {
		return
	}
	p, err := h.Loans.Payment(r.Context(), l.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payment_amount":    p,
		"term_months":       l.TermMonths,
		"interest_rate":     l.InterestRate,
		"principal":         l.Amount,
		"remaining_balance": l.Balance,
	})
}

// Pay books a payment against an active loan.
func (h *LoanHandler) Pay(w http.ResponseWriter, r *http.Request) {
	l, ok := h.authorized(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !decode(w, r, &req) {
		return
	}
	left, err := h.Loans.Pay(r.Context(), l.ID, req.Amount, req.AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "payment successful", "balance": left})
}

// Approve moves a pending loan to approved. Admin only.
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Loans.Approve, "loan approved successfully")
}

// Reject moves a pending loan to rejected. Admin only.
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Loans.Reject, "loan rejected successfully")
}

// Activate moves an approved loan to active. Admin only.
func (h *LoanHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Loans.Activate, "loan activated successfully")
}

func (h *LoanHandler) review(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error, done string) {
	if err := op(r.Context(), chi.URLParam(r, "loanID")); err != nil {
		fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, done)
}

func (h *LoanHandler) authorized(w http.ResponseWriter, r *http.Request) (models.Loan, bool) {
	l, err := h.Loans.Loan(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		fail(w, err)
		return models.Loan{}, false
	}
	if !owns(r, l.UserID) {
		writeError(w, http.StatusForbidden, "unauthorized access to loan")
		return models.Loan{}, false
	}
	return l, true
}
