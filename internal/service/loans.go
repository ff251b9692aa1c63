package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// MonthlyPayment is the annuity payment of principal over term months at the
// given annual percentage rate, rounded to cents.
func MonthlyPayment(principal, annualRate decimal.Decimal, term int) decimal.Decimal {
	if term <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(term))
	r := annualRate.Div(hundred).Div(twelve)
	if r.IsZero() {
		return principal.Div(n).Round(2)
	}
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	// P*r*(1+r)^n / ((1+r)^n - 1)
	return principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))).Round(2)
}

// Loans lists the loans of userID, or every loan when userID is empty.
func (b *Bank) Loans(ctx context.Context, userID string) ([]models.Loan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Loan, 0)
	for _, l := range b.loans {
		if userID == "" || l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt.Time) })
	return out, nil
}

// Loan returns one loan.
func (b *Bank) Loan(ctx context.Context, id string) (models.Loan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	l, ok := b.loans[id]
	if !ok {
		return models.Loan{}, fail(ErrNotFound, "loan not found")
	}
	return *l, nil
}

// Apply records a pending loan application.
func (b *Bank) Apply(ctx context.Context, userID string, a models.LoanApplication) (models.Loan, error) {
	switch {
	case a.Type == "":
		return models.Loan{}, fail(ErrInvalid, "loan_type is required")
	case !a.Amount.IsPositive():
		return models.Loan{}, fail(ErrInvalid, "amount must be positive")
	case a.TermMonths <= 0:
		return models.Loan{}, fail(ErrInvalid, "term_months must be positive")
	case a.InterestRate.IsNegative():
		return models.Loan{}, fail(ErrInvalid, "interest_rate cannot be negative")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l := &models.Loan{
		ID:           uuid.NewString(),
		UserID:       userID,
		Type:         a.Type,
		Amount:       a.Amount,
		InterestRate: a.InterestRate,
		TermMonths:   a.TermMonths,
		Balance:      a.Amount,
		Status:       models.LoanPending,
		Purpose:      a.Purpose,
		CreatedAt:    models.NewTimestamp(b.now()),
	}
	b.loans[l.ID] = l
	return *l, nil
}

// Payment returns the monthly payment of a loan.
func (b *Bank) Payment(ctx context.Context, id string) (decimal.Decimal, error) {
	l, err := b.Loan(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return MonthlyPayment(l.Amount, l.InterestRate, l.TermMonths), nil
}

// Pay withdraws amount from account and books it against an active loan.
// Paying off the balance closes the loan; the amount is capped at the balance.
func (b *Bank) Pay(ctx context.Context, loanID string, amount decimal.Decimal, accountID string) (decimal.Decimal, error) {
	if err := positive(amount); err != nil {
		return decimal.Zero, err
	}
	if accountID == "" {
		return decimal.Zero, fail(ErrInvalid, "account_id is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.loans[loanID]
	if !ok {
		return decimal.Zero, fail(ErrNotFound, "loan not found")
	}
	if l.Status != models.LoanActive {
		return decimal.Zero, fail(ErrInvalid, "cannot make payment on loan with status '%s'", l.Status)
	}
	if a, ok := b.accounts[accountID]; !ok || a.OwnerID != l.UserID {
		return decimal.Zero, fail(ErrForbidden, "account does not belong to the borrower")
	}
	amount = decimal.Min(amount, l.Balance)
	if err := b.withdrawLocked(accountID, amount, "loan payment"); err != nil {
		return decimal.Zero, err
	}
	l.Balance = l.Balance.Sub(amount)
	if !l.Balance.IsPositive() {
		l.Balance = decimal.Zero
		l.Status = models.LoanPaidOff
	}
	return l.Balance, nil
}

// Approve moves a pending loan to approved.
func (b *Bank) Approve(ctx context.Context, id string) error {
	return b.transition(id, models.LoanPending, models.LoanApproved)
}

// Reject moves a pending loan to rejected.
func (b *Bank) Reject(ctx context.Context, id string) error {
	return b.transition(id, models.LoanPending, models.LoanRejected)
}

// Activate moves an approved loan to active.
func (b *Bank) Activate(ctx context.Context, id string) error {
	return b.transition(id, models.LoanApproved, models.LoanActive)
}

func (b *Bank) transition(id string, from, to models.LoanStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.loans[id]
	if !ok {
		return fail(ErrNotFound, "loan not found")
	}
	if l.Status != from {
		return fail(ErrInvalid, "loan is %s, expected %s", l.Status, from)
	}
	l.Status = to
	if to == models.LoanApproved {
		l.ApprovedAt = models.NewTimestamp(b.now())
	}
	return nil
}
