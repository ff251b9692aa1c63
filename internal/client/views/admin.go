package views

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/client/session"
	"github.com/atinyakov/GophBank/internal/models"
)

// AdminLoan is a loan with the name of its applicant.
type AdminLoan struct {
	models.Loan
	Applicant string
}

// Stats are system-wide counts.
type Stats struct {
	Users        int
	Accounts     int
	Transactions int
	Loans        int
}

// AdminModel is the admin dashboard.
type AdminModel struct {
	Users    []models.User
	Pending  []AdminLoan
	Approved []AdminLoan
	Stats    Stats
}

// UserDetail is a user with their accounts.
type UserDetail struct {
	User     models.User
	Accounts []models.Account
}

// Admin is the administration view. It exists only for sessions with the
// admin capability.
type Admin struct {
	env *Env
}

// NewAdmin fails with apperr.ErrForbidden unless the session may administer.
func NewAdmin(env *Env) (*Admin, error) {
	if !session.CanAdminister(env.Session.User()) {
		return nil, apperr.ErrForbidden
	}
	return &Admin{env: env}, nil
}

func (a *Admin) Load(ctx context.Context) (any, error) {
	users, err := a.env.Cache.AllUsers(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := a.env.Cache.AllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := a.env.Cache.AllLoans(ctx)
	if err != nil {
		return nil, err
	}

	m := AdminModel{
		Users: users,
		Stats: Stats{Users: len(users), Accounts: len(accounts), Loans: len(loans)},
	}
	// the ledger count is best effort
	if txs, err := a.env.Cache.Transactions(ctx); err == nil {
		m.Stats.Transactions = len(txs)
	} else if !apperr.Global(err) {
		a.env.logger().Debug("transaction count unavailable", zap.Error(err))
	} else {
		return nil, err
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	for _, l := range loans {
		al := AdminLoan{Loan: l, Applicant: names[l.UserID]}
		if al.Applicant == "" {
			al.Applicant = "Unknown"
		}
		switch l.Status {
		case models.LoanPending:
			m.Pending = append(m.Pending, al)
		case models.LoanApproved:
			m.Approved = append(m.Approved, al)
		}
	}
	return m, nil
}

// UserDetail fetches a user and their accounts.
func (a *Admin) UserDetail(ctx context.Context, id string) (UserDetail, error) {
	u, err := a.env.Remote.User(ctx, id)
	if err != nil {
		return UserDetail{}, a.env.report(router.Admin, err)
	}
	accounts, err := a.env.Remote.Accounts(ctx, api.AccountFilter{UserID: id})
	if err != nil {
		return UserDetail{}, a.env.report(router.Admin, err)
	}
	return UserDetail{User: u, Accounts: accounts}, nil
}

// LoanDetail fetches a loan with its applicant and monthly payment.
func (a *Admin) LoanDetail(ctx context.Context, id string) (AdminLoan, decimal.Decimal, error) {
	loan, err := a.env.Remote.Loan(ctx, id)
	if err != nil {
		return AdminLoan{}, decimal.Zero, a.env.report(router.Admin, err)
	}
	al := AdminLoan{Loan: loan, Applicant: "Unknown"}
	if u, err := a.env.Remote.User(ctx, loan.UserID); err == nil {
		al.Applicant = u.FullName
	}
	payment := decimal.Zero
	if p, err := a.env.Remote.LoanPayment(ctx, id); err == nil {
		payment = p
	}
	return al, payment, nil
}

// Approve approves a pending loan.
func (a *Admin) Approve(ctx context.Context, loanID string) error {
	return a.decide(ctx, "approve loan", "Loan approved successfully", func(ctx context.Context) error {
		return a.env.Remote.ApproveLoan(ctx, loanID)
	}, cache.AllLoans, cache.Loans)
}

// Reject rejects a pending loan.
func (a *Admin) Reject(ctx context.Context, loanID string) error {
	return a.decide(ctx, "reject loan", "Loan rejected successfully", func(ctx context.Context) error {
		return a.env.Remote.RejectLoan(ctx, loanID)
	}, cache.AllLoans, cache.Loans)
}

// Activate disburses an approved loan.
func (a *Admin) Activate(ctx context.Context, loanID string) error {
	return a.decide(ctx, "activate loan", "Loan activated successfully", func(ctx context.Context) error {
		return a.env.Remote.ActivateLoan(ctx, loanID)
	}, cache.AllLoans, cache.Loans, cache.AllAccounts, cache.Accounts, cache.Transactions)
}

// DeleteUser removes a user.
func (a *Admin) DeleteUser(ctx context.Context, userID string) error {
	if u := a.env.Session.User(); u != nil && u.ID == userID {
		return a.env.acknowledge(apperr.Validation("delete user", "you cannot delete your own account"))
	}
	return a.decide(ctx, "delete user", "User deleted successfully", func(ctx context.Context) error {
		return a.env.Remote.DeleteUser(ctx, userID)
	}, cache.AllUsers, cache.AllAccounts, cache.AllLoans)
}

func (a *Admin) decide(ctx context.Context, action, done string, call func(ctx context.Context) error, parts ...cache.Partition) error {
	if err := a.env.Mutator.Run(ctx, action, call, parts...); err != nil {
		return a.env.acknowledge(err)
	}
	a.env.Renderer.Acknowledge(done)
	return nil
}
