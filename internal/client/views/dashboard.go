package views

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

const recentEntries = 5

// DashboardModel summarises the user's finances.
type DashboardModel struct {
	User         *models.User
	Accounts     []models.Account
	TotalBalance decimal.Decimal
	ActiveLoans  int
	// LastMonth counts entries of the last 30 days.
	LastMonth int
	Recent    []Entry
}

// Dashboard is the landing view.
type Dashboard struct {
	env *Env
	now func() time.Time
}

func NewDashboard(env *Env) *Dashboard {
	return &Dashboard{env: env, now: time.Now}
}

func (d *Dashboard) Load(ctx context.Context) (any, error) {
	accounts, err := d.env.Cache.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := d.env.Cache.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := d.env.Cache.Loans(ctx)
	if err != nil {
		return nil, err
	}

	m := DashboardModel{User: d.env.Session.User(), Accounts: accounts, TotalBalance: decimal.Zero}
	for _, a := range accounts {
		m.TotalBalance = m.TotalBalance.Add(a.Balance)
	}
	for _, l := range loans {
		if l.Status == models.LoanActive {
			m.ActiveLoans++
		}
	}
	since := d.now().AddDate(0, 0, -30)
	for _, tx := range txs {
		if tx.CreatedAt.After(since) {
			m.LastMonth++
		}
	}

	entries, err := classifyEntries(txs, accounts, "")
	if err != nil {
		return nil, err
	}
	newestFirst(entries)
	if len(entries) > recentEntries {
		entries = entries[:recentEntries]
	}
	m.Recent = entries
	return m, nil
}
