package views

import (
	"context"
	"sync"

	"github.com/atinyakov/GophBank/internal/models"
)

// TransactionFilter narrows the ledger. Empty fields match everything.
type TransactionFilter struct {
	AccountID string
	Type      models.TxType
}

// TransactionsModel is the filtered, classified ledger.
type TransactionsModel struct {
	Filter   TransactionFilter
	Accounts []models.Account
	Entries  []Entry
}

// Transactions is the ledger view.
type Transactions struct {
	env     *Env
	refresh Refresher

	mu     sync.Mutex
	filter TransactionFilter
}

func NewTransactions(env *Env, r Refresher) *Transactions {
	return &Transactions{env: env, refresh: r}
}

// SetFilter changes the filter and redraws from the cache.
func (t *Transactions) SetFilter(ctx context.Context, f TransactionFilter) error {
	t.mu.Lock()
	t.filter = f
	t.mu.Unlock()
	return t.refresh.Refresh(ctx)
}

// Filter returns the active filter.
func (t *Transactions) Filter() TransactionFilter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter
}

func (t *Transactions) Load(ctx context.Context) (any, error) {
	f := t.Filter()
	accounts, err := t.env.Cache.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := t.env.Cache.Transactions(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.AccountID != "" && tx.AccountID != f.AccountID && tx.DestinationAccountID != f.AccountID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		matched = append(matched, tx)
	}

	entries, err := classifyEntries(matched, accounts, f.AccountID)
	if err != nil {
		return nil, err
	}
	newestFirst(entries)
	return TransactionsModel{Filter: f, Accounts: accounts, Entries: entries}, nil
}
