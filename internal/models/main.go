// Package models defines the banking entities exchanged with the bank API:
// users, accounts, ledger entries and loans.
package models

import (
	"github.com/shopspring/decimal"
)

// Role is the access level of a user.
type Role string

const (
	// RoleMember is a regular customer.
	RoleMember Role = "member"
	// RoleAdmin can review loans and manage users.
	RoleAdmin Role = "admin"
)

// UnmarshalText maps the server role onto Role. The server reports regular
// customers as "user"; anything other than "admin" is a member.
func (r *Role) UnmarshalText(b []byte) error {
	if string(b) == string(RoleAdmin) {
		*r = RoleAdmin
	} else {
		*r = RoleMember
	}
	return nil
}

// User represents an authenticated bank customer.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"user_id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// FullName is shown in greetings and admin listings.
	FullName string `json:"full_name"`
	// Email is the contact address.
	Email string `json:"email"`
	// Role decides which views the user may reach.
	Role Role `json:"role"`
	// CreatedAt is the registration time.
	CreatedAt Timestamp `json:"created_at,omitempty"`
}

// Registration holds the fields required to create a user.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are not sent.
type ProfileUpdate struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.FullName == "" && p.Email == "" && p.Password == ""
}

// Account is a deposit account as last reported by the server.
type Account struct {
	ID      string          `json:"account_id"`
	OwnerID string          `json:"user_id"`
	Type    string          `json:"account_type"`
	Number  string          `json:"account_number"`
	Balance decimal.Decimal `json:"balance"`
	Active  bool            `json:"active"`
	// CreatedAt is the opening time.
	CreatedAt Timestamp `json:"created_at"`
}

// NewAccount is the request to open an account with an optional initial deposit.
type NewAccount struct {
	Type           string          `json:"account_type"`
	InitialDeposit decimal.Decimal `json:"balance"`
}

// TxType is the kind of a ledger entry.
type TxType string

const (
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
	TxTransfer   TxType = "transfer"
)

// Transaction is a ledger entry. Amount is always positive; the direction of
// money movement depends on the account it is viewed from.
type Transaction struct {
	ID                   string          `json:"transaction_id"`
	AccountID            string          `json:"account_id"`
	DestinationAccountID string          `json:"destination_account_id,omitempty"`
	Type                 TxType          `json:"transaction_type"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description,omitempty"`
	CreatedAt            Timestamp       `json:"created_at"`
}

// Transfer is the request to move money between two accounts.
type Transfer struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// LoanStatus is a stage of the loan lifecycle.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanRejected  LoanStatus = "rejected"
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanDefaulted LoanStatus = "defaulted"
)

// Loan is a loan application or a running loan.
type Loan struct {
	ID           string          `json:"loan_id"`
	UserID       string          `json:"user_id"`
	Type         string          `json:"loan_type"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	TermMonths   int             `json:"term_months"`
	Balance      decimal.Decimal `json:"balance"`
	Status       LoanStatus      `json:"status"`
	Purpose      string          `json:"purpose,omitempty"`
	CreatedAt    Timestamp       `json:"created_at"`
	ApprovedAt   Timestamp       `json:"approved_at,omitempty"`
}

// LoanApplication is the request to apply for a loan.
type LoanApplication struct {
	Type         string          `json:"loan_type"`
	Amount       decimal.Decimal `json:"amount"`
	TermMonths   int             `json:"term_months"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Purpose      string          `json:"purpose,omitempty"`
}
