// Package classify decides how a ledger entry reads from the point of view of
// one account. It is the only place that assigns a sign to money movement.
package classify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/models"
)

// Polarity tells whether an entry increases or decreases the perspective account.
type Polarity string

const (
	Credit Polarity = "credit"
	Debit  Polarity = "debit"
)

// Category is the display category of an entry.
type Category string

const (
	Deposit     Category = "deposit"
	Withdrawal  Category = "withdrawal"
	TransferOut Category = "transfer_out"
	TransferIn  Category = "transfer_in"
)

// Classification is the view of one entry from one account.
type Classification struct {
	Polarity Polarity
	Category Category
	// Counterparty is the other account of a transfer, empty otherwise.
	Counterparty string
}

// Classify maps entry onto a polarity as seen from the account perspective.
// Entries that do not match a known shape fail with apperr.ErrClassification.
func Classify(entry models.Transaction, perspective string) (Classification, error) {
	if !entry.Amount.IsPositive() {
		return Classification{}, shapeError(entry, "amount must be positive")
	}

	switch entry.Type {
	case models.TxDeposit, models.TxWithdrawal:
		if entry.DestinationAccountID != "" {
			return Classification{}, shapeError(entry, "destination on a non-transfer entry")
		}
		if entry.Type == models.TxDeposit {
			return Classification{Polarity: Credit, Category: Deposit}, nil
		}
		return Classification{Polarity: Debit, Category: Withdrawal}, nil

	case models.TxTransfer:
		if entry.DestinationAccountID == "" {
			return Classification{}, shapeError(entry, "transfer without destination")
		}
		switch perspective {
		case entry.AccountID:
			return Classification{Polarity: Debit, Category: TransferOut, Counterparty: entry.DestinationAccountID}, nil
		case entry.DestinationAccountID:
			return Classification{Polarity: Credit, Category: TransferIn, Counterparty: entry.AccountID}, nil
		}
		return Classification{}, shapeError(entry, fmt.Sprintf("account %q is not a side of this transfer", perspective))
	}

	return Classification{}, shapeError(entry, fmt.Sprintf("unknown type %q", entry.Type))
}

func shapeError(entry models.Transaction, reason string) error {
	return apperr.New(apperr.ErrClassification, "classify",
		fmt.Sprintf("transaction %s: %s", entry.ID, reason), nil)
}

// PerspectiveFor picks the account an entry is read from in a user-wide list:
// the source account when the user owns it, otherwise the destination.
func PerspectiveFor(entry models.Transaction, owned map[string]bool) string {
	if owned[entry.AccountID] || entry.DestinationAccountID == "" {
		return entry.AccountID
	}
	if owned[entry.DestinationAccountID] {
		return entry.DestinationAccountID
	}
	return entry.AccountID
}

// Owned indexes the ids of accounts.
func Owned(accounts []models.Account) map[string]bool {
	m := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		m[a.ID] = true
	}
	return m
}

// Label renders the account with the given id as "<type> - <number>".
func Label(accounts []models.Account, id string) string {
	for _, a := range accounts {
		if a.ID == id {
			return a.Type + " - " + a.Number
		}
	}
	return "Unknown Account"
}

// Signed returns amount with the sign of p.
func Signed(amount decimal.Decimal, p Polarity) decimal.Decimal {
	if p == Debit {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}
