package views

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/models"
)

// LoansModel lists the user's loans.
type LoansModel struct {
	Loans []models.Loan
}

// LoanDetails is a loan with its monthly payment. A payment that could not be
// calculated is zero.
type LoanDetails struct {
	Loan           models.Loan
	MonthlyPayment decimal.Decimal
}

// PaymentForm is what the payment dialog needs.
type PaymentForm struct {
	Loan models.Loan
	// Accounts are the active accounts with money on them.
	Accounts []models.Account
	// Prefill is the suggested amount; nil when it could not be calculated.
	Prefill *decimal.Decimal
}

// Loans is the loan list and its actions.
type Loans struct {
	env *Env
}

func NewLoans(env *Env) *Loans {
	return &Loans{env: env}
}

func (l *Loans) Load(ctx context.Context) (any, error) {
	loans, err := l.env.Cache.Loans(ctx)
	if err != nil {
		return nil, err
	}
	return LoansModel{Loans: loans}, nil
}

// Details fetches a loan and its monthly payment.
func (l *Loans) Details(ctx context.Context, id string) (LoanDetails, error) {
	loan, err := l.env.Remote.Loan(ctx, id)
	if err != nil {
		return LoanDetails{}, l.env.report(router.Loans, err)
	}
	d := LoanDetails{Loan: loan, MonthlyPayment: decimal.Zero}
	if p, err := l.env.Remote.LoanPayment(ctx, id); err == nil {
		d.MonthlyPayment = p
	} else {
		l.env.logger().Debug("payment calculation failed", zap.String("loan_id", id), zap.Error(err))
	}
	return d, nil
}

// PaymentForm prepares a payment. Only fetching the loan or the accounts can
// fail; a failed amount calculation leaves the prefill empty.
func (l *Loans) PaymentForm(ctx context.Context, id string) (PaymentForm, error) {
	loan, err := l.env.Remote.Loan(ctx, id)
	if err != nil {
		return PaymentForm{}, l.env.report(router.Loans, err)
	}
	accounts, err := l.env.Cache.Accounts(ctx)
	if err != nil {
		return PaymentForm{}, l.env.report(router.Loans, err)
	}
	form := PaymentForm{Loan: loan, Accounts: make([]models.Account, 0, len(accounts))}
	for _, a := range accounts {
		if a.Active && a.Balance.IsPositive() {
			form.Accounts = append(form.Accounts, a)
		}
	}
	if p, err := l.env.Remote.LoanPayment(ctx, id); err == nil {
		form.Prefill = &p
	} else {
		l.env.logger().Debug("payment prefill unavailable", zap.String("loan_id", id), zap.Error(err))
	}
	return form, nil
}

// Apply submits a loan application.
func (l *Loans) Apply(ctx context.Context, a models.LoanApplication) error {
	var err error
	switch {
	case strings.TrimSpace(a.Type) == "":
		err = apperr.Validation("apply for loan", "loan type is required")
	case a.TermMonths <= 0:
		err = apperr.Validation("apply for loan", "term must be at least one month")
	case a.InterestRate.IsNegative():
		err = apperr.Validation("apply for loan", "interest rate cannot be negative")
	default:
		err = requirePositive("apply for loan", a.Amount)
	}
	if err != nil {
		return l.env.report(router.Loans, err)
	}
	err = l.env.Mutator.Run(ctx, "apply for loan", func(ctx context.Context) error {
		return l.env.Remote.ApplyForLoan(ctx, a)
	}, cache.Loans, cache.AllLoans, cache.AllAccounts)
	return l.env.report(router.Loans, err)
}

// Pay pays amount towards a loan from an account.
func (l *Loans) Pay(ctx context.Context, loanID string, amount decimal.Decimal, accountID string) error {
	if accountID == "" {
		return l.env.report(router.Loans, apperr.Validation("loan payment", "select an account to pay from"))
	}
	if err := requirePositive("loan payment", amount); err != nil {
		return l.env.report(router.Loans, err)
	}
	err := l.env.Mutator.Run(ctx, "loan payment", func(ctx context.Context) error {
		return l.env.Remote.MakeLoanPayment(ctx, loanID, amount, accountID)
	}, cache.Accounts, cache.Transactions, cache.Loans, cache.AllLoans, cache.AllAccounts)
	return l.env.report(router.Loans, err)
}
