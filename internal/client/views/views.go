// Package views holds one controller per screen. Each controller loads its
// model from the cache and performs its mutations through the Mutator.
package views

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
	"github.com/atinyakov/GophBank/internal/client/classify"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/models"
)

// Remote is the part of the bank API used outside the cached lists.
type Remote interface {
	Account(ctx context.Context, id string) (models.Account, error)
	AccountTransactions(ctx context.Context, accountID string) ([]models.Transaction, error)
	Accounts(ctx context.Context, f api.AccountFilter) ([]models.Account, error)
	CreateAccount(ctx context.Context, n models.NewAccount) error
	CloseAccount(ctx context.Context, id string) error
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) error
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) error
	Transfer(ctx context.Context, t models.Transfer) error

	Loan(ctx context.Context, id string) (models.Loan, error)
	LoanPayment(ctx context.Context, id string) (decimal.Decimal, error)
	ApplyForLoan(ctx context.Context, a models.LoanApplication) error
	MakeLoanPayment(ctx context.Context, loanID string, amount decimal.Decimal, accountID string) error
	ApproveLoan(ctx context.Context, id string) error
	RejectLoan(ctx context.Context, id string) error
	ActivateLoan(ctx context.Context, id string) error

	UpdateProfile(ctx context.Context, p models.ProfileUpdate) error
	User(ctx context.Context, id string) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Session exposes the signed-in user.
type Session interface {
	User() *models.User
	RefreshProfile(ctx context.Context) error
}

// Env is shared by all controllers.
type Env struct {
	Cache    *cache.Cache
	Remote   Remote
	Session  Session
	Renderer router.Renderer
	Mutator  *Mutator
	Log      *zap.Logger
}

func (e *Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// report shows err on view v unless the session handles it.
func (e *Env) report(v router.View, err error) error {
	if err != nil && !apperr.Global(err) {
		e.Renderer.ShowError(v, apperr.Message(err))
	}
	return err
}

// acknowledge reports err through a blocking acknowledgment.
func (e *Env) acknowledge(err error) error {
	if err != nil && !apperr.Global(err) {
		e.Renderer.Acknowledge(apperr.Message(err))
	}
	return err
}

// Entry is a ledger entry classified from one account.
type Entry struct {
	Tx    models.Transaction
	Class classify.Classification
	// Signed is the amount with the sign of its polarity.
	Signed decimal.Decimal
	// Account labels the perspective account.
	Account string
	// Counterparty labels the other side of a transfer.
	Counterparty string
}

// classifyEntries classifies txs. With an empty perspective each entry is
// viewed from the side the user owns.
func classifyEntries(txs []models.Transaction, accounts []models.Account, perspective string) ([]Entry, error) {
	owned := classify.Owned(accounts)
	out := make([]Entry, 0, len(txs))
	for _, tx := range txs {
		p := perspective
		if p == "" {
			p = classify.PerspectiveFor(tx, owned)
		}
		c, err := classify.Classify(tx, p)
		if err != nil {
			return nil, err
		}
		e := Entry{
			Tx:      tx,
			Class:   c,
			Signed:  classify.Signed(tx.Amount, c.Polarity),
			Account: classify.Label(accounts, p),
		}
		if c.Counterparty != "" {
			e.Counterparty = classify.Label(accounts, c.Counterparty)
		}
		out = append(out, e)
	}
	return out, nil
}

// newestFirst sorts entries by time, most recent first.
func newestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Tx.CreatedAt.After(entries[j].Tx.CreatedAt.Time)
	})
}

func requirePositive(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation(op, "amount must be greater than zero")
	}
	return nil
}
