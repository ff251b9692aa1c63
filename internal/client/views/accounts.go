package views

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/models"
)

// moneyMoved also covers the admin account list so an admin session never
// keeps an older copy of its own accounts.
var moneyMoved = []cache.Partition{cache.Accounts, cache.Transactions, cache.AllAccounts}

// AccountsModel lists the user's accounts.
type AccountsModel struct {
	Accounts []models.Account
}

// AccountDetails is one account with its ledger seen from that account.
type AccountDetails struct {
	Account models.Account
	Entries []Entry
	// Closable holds when the balance is exactly zero.
	Closable bool
}

// Accounts is the account list and the per-account actions.
type Accounts struct {
	env *Env
}

func NewAccounts(env *Env) *Accounts {
	return &Accounts{env: env}
}

func (a *Accounts) Load(ctx context.Context) (any, error) {
	accounts, err := a.env.Cache.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return AccountsModel{Accounts: accounts}, nil
}

// Details fetches a fresh copy of the account and its ledger.
func (a *Accounts) Details(ctx context.Context, id string) (AccountDetails, error) {
	acc, err := a.env.Remote.Account(ctx, id)
	if err != nil {
		return AccountDetails{}, a.env.report(router.Accounts, err)
	}
	txs, err := a.env.Remote.AccountTransactions(ctx, id)
	if err != nil {
		return AccountDetails{}, a.env.report(router.Accounts, err)
	}
	known, err := a.env.Cache.Accounts(ctx)
	if err != nil {
		return AccountDetails{}, a.env.report(router.Accounts, err)
	}
	// the fresh copy wins over the cached one for labelling
	labels := append([]models.Account{acc}, known...)

	entries, err := classifyEntries(txs, labels, id)
	if err != nil {
		return AccountDetails{}, a.env.report(router.Accounts, err)
	}
	newestFirst(entries)
	return AccountDetails{Account: acc, Entries: entries, Closable: acc.Balance.IsZero()}, nil
}

// Open creates an account of the given type.
func (a *Accounts) Open(ctx context.Context, accountType string, initial decimal.Decimal) error {
	accountType = strings.TrimSpace(accountType)
	if accountType == "" {
		return a.env.report(router.Accounts, apperr.Validation("open account", "account type is required"))
	}
	if initial.IsNegative() {
		return a.env.report(router.Accounts, apperr.Validation("open account", "initial deposit cannot be negative"))
	}
	err := a.env.Mutator.Run(ctx, "open account", func(ctx context.Context) error {
		return a.env.Remote.CreateAccount(ctx, models.NewAccount{Type: accountType, InitialDeposit: initial})
	}, moneyMoved...)
	return a.env.report(router.Accounts, err)
}

// Deposit credits amount to an account.
func (a *Accounts) Deposit(ctx context.Context, id string, amount decimal.Decimal, description string) error {
	if err := requirePositive("deposit", amount); err != nil {
		return a.env.report(router.Accounts, err)
	}
	err := a.env.Mutator.Run(ctx, "deposit", func(ctx context.Context) error {
		return a.env.Remote.Deposit(ctx, id, amount, description)
	}, moneyMoved...)
	return a.env.report(router.Accounts, err)
}

// Withdraw debits amount from an account.
func (a *Accounts) Withdraw(ctx context.Context, id string, amount decimal.Decimal, description string) error {
	if err := requirePositive("withdraw", amount); err != nil {
		return a.env.report(router.Accounts, err)
	}
	err := a.env.Mutator.Run(ctx, "withdraw", func(ctx context.Context) error {
		return a.env.Remote.Withdraw(ctx, id, amount, description)
	}, moneyMoved...)
	return a.env.report(router.Accounts, err)
}

// Close closes an account. The outcome is reported through an acknowledgment.
func (a *Accounts) Close(ctx context.Context, id string) error {
	err := a.env.Mutator.Run(ctx, "close account", func(ctx context.Context) error {
		return a.env.Remote.CloseAccount(ctx, id)
	}, moneyMoved...)
	if err != nil {
		return a.env.acknowledge(err)
	}
	a.env.Renderer.Acknowledge("Account closed successfully")
	return nil
}
