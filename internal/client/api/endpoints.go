package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a token. It does not store the token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var res LoginResult
	in := map[string]string{"username": username, "password": password}
	err := c.do(ctx, "login", http.MethodPost, "/users/login", false, in, &res)
	return res, err
}

// Register creates a user. The caller signs in separately.
func (c *Client) Register(ctx context.Context, r models.Registration) error {
	return c.do(ctx, "register", http.MethodPost, "/users/register", false, r, nil)
}

// Profile returns the user the current token belongs to.
func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, "profile", http.MethodGet, "/users/profile", true, nil, &u)
	return u, err
}

// UpdateProfile changes the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, p models.ProfileUpdate) error {
	return c.do(ctx, "update profile", http.MethodPut, "/users/profile", true, p, nil)
}

// AccountFilter narrows an account listing. All and UserID are honoured for
// admins only.
type AccountFilter struct {
	All    bool
	UserID string
}

func (f AccountFilter) query() string {
	q := url.Values{}
	if f.All {
		q.Set("all", "true")
	}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Accounts lists accounts.
func (c *Client) Accounts(ctx context.Context, f AccountFilter) ([]models.Account, error) {
	var res struct {
		Accounts []models.Account `json:"accounts"`
	}
	err := c.do(ctx, "accounts", http.MethodGet, "/accounts"+f.query(), true, nil, &res)
	return res.Accounts, err
}

// Account fetches one account.
func (c *Client) Account(ctx context.Context, id string) (models.Account, error) {
	var a models.Account
	err := c.do(ctx, "account", http.MethodGet, "/accounts/"+url.PathEscape(id), true, nil, &a)
	return a, err
}

// CreateAccount opens an account.
func (c *Client) CreateAccount(ctx context.Context, n models.NewAccount) error {
	return c.do(ctx, "create account", http.MethodPost, "/accounts", true, n, nil)
}

// CloseAccount closes an account with zero balance.
func (c *Client) CloseAccount(ctx context.Context, id string) error {
	return c.do(ctx, "close account", http.MethodPost, "/accounts/"+url.PathEscape(id)+"/close", true, nil, nil)
}

type movement struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Deposit credits amount to an account.
func (c *Client) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) error {
	return c.do(ctx, "deposit", http.MethodPost, "/accounts/"+url.PathEscape(accountID)+"/deposit", true,
		movement{Amount: amount, Description: description}, nil)
}

// Withdraw debits amount from an account.
func (c *Client) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) error {
	return c.do(ctx, "withdraw", http.MethodPost, "/accounts/"+url.PathEscape(accountID)+"/withdraw", true,
		movement{Amount: amount, Description: description}, nil)
}

// Transfer moves money between two accounts.
func (c *Client) Transfer(ctx context.Context, t models.Transfer) error {
	return c.do(ctx, "transfer", http.MethodPost, "/accounts/transfer", true, t, nil)
}

type transactionList struct {
	Transactions []models.Transaction `json:"transactions"`
}

// AccountTransactions lists the ledger of one account.
func (c *Client) AccountTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var res transactionList
	err := c.do(ctx, "account transactions", http.MethodGet, "/accounts/"+url.PathEscape(accountID)+"/transactions", true, nil, &res)
	return res.Transactions, err
}

// UserTransactions lists the ledger of every account of the current user.
func (c *Client) UserTransactions(ctx context.Context) ([]models.Transaction, error) {
	var res transactionList
	err := c.do(ctx, "transactions", http.MethodGet, "/accounts/user/transactions", true, nil, &res)
	return res.Transactions, err
}

// Loans lists the user's loans, or every loan when all is set and the caller is an admin.
func (c *Client) Loans(ctx context.Context, all bool) ([]models.Loan, error) {
	path := "/loans"
	if all {
		path += "?all=true"
	}
	var res struct {
		Loans []models.Loan `json:"loans"`
	}
	err := c.do(ctx, "loans", http.MethodGet, path, true, nil, &res)
	return res.Loans, err
}

// Loan fetches one loan.
func (c *Client) Loan(ctx context.Context, id string) (models.Loan, error) {
	var l models.Loan
	err := c.do(ctx, "loan", http.MethodGet, "/loans/"+url.PathEscape(id), true, nil, &l)
	return l, err
}

// ApplyForLoan submits a loan application.
func (c *Client) ApplyForLoan(ctx context.Context, a models.LoanApplication) error {
	return c.do(ctx, "apply for loan", http.MethodPost, "/loans", true, a, nil)
}

// LoanPayment returns the monthly payment of a loan.
func (c *Client) LoanPayment(ctx context.Context, id string) (decimal.Decimal, error) {
	var res struct {
		PaymentAmount decimal.Decimal `json:"payment_amount"`
	}
	err := c.do(ctx, "calculate payment", http.MethodGet, "/loans/"+url.PathEscape(id)+"/payment-amount", true, nil, &res)
	return res.PaymentAmount, err
}

// MakeLoanPayment pays amount towards a loan from an account.
func (c *Client) MakeLoanPayment(ctx context.Context, loanID string, amount decimal.Decimal, accountID string) error {
	in := struct {
		Amount    decimal.Decimal `json:"amount"`
		AccountID string          `json:"account_id"`
	}{amount, accountID}
	return c.do(ctx, "loan payment", http.MethodPost, "/loans/"+url.PathEscape(loanID)+"/payment", true, in, nil)
}

// ApproveLoan moves a pending loan to approved. Admin only.
func (c *Client) ApproveLoan(ctx context.Context, id string) error {
	return c.do(ctx, "approve loan", http.MethodPost, "/loans/"+url.PathEscape(id)+"/approve", true, nil, nil)
}

// RejectLoan moves a pending loan to rejected. Admin only.
func (c *Client) RejectLoan(ctx context.Context, id string) error {
	return c.do(ctx, "reject loan", http.MethodPost, "/loans/"+url.PathEscape(id)+"/reject", true, nil, nil)
}

// ActivateLoan moves an approved loan to active. Admin only.
func (c *Client) ActivateLoan(ctx context.Context, id string) error {
	return c.do(ctx, "activate loan", http.MethodPost, "/loans/"+url.PathEscape(id)+"/activate", true, nil, nil)
}

// Users lists every user. Admin only.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var res struct {
		Users []models.User `json:"users"`
	}
	err := c.do(ctx, "users", http.MethodGet, "/users", true, nil, &res)
	return res.Users, err
}

// User fetches one user. Admin only.
func (c *Client) User(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := c.do(ctx, "user", http.MethodGet, "/users/"+url.PathEscape(id), true, nil, &u)
	return u, err
}

// DeleteUser removes a user. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, "delete user", http.MethodDelete, "/users/"+url.PathEscape(id), true, nil, nil)
}
