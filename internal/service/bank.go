// Package service provides the in-memory bank behind the development server:
// users, accounts, the ledger and the loan lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/GophBank/internal/models"
)

// Error kinds returned by Bank. Handlers map them to HTTP statuses.
var (
	ErrInvalid   = errors.New("invalid request")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
	ErrAuth      = errors.New("unauthorized")
)

// Error is a Bank failure with a message for the caller.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

type user struct {
	models.User
	hash []byte
}

// Bank keeps all state in memory. It is safe for concurrent use.
type Bank struct {
	cost int
	now  func() time.Time

	mu          sync.RWMutex
	users       map[string]*user
	accounts    map[string]*models.Account
	txs         []models.Transaction
	loans       map[string]*models.Loan
	nextAccount int64
}

// NewBank returns an empty bank hashing passwords with the given bcrypt cost.
// A zero cost selects bcrypt.DefaultCost.
func NewBank(cost int) *Bank {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bank{
		cost:        cost,
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[string]*user),
		accounts:    make(map[string]*models.Account),
		loans:       make(map[string]*models.Loan),
		nextAccount: 1000000000,
	}
}

// SeedAdmin creates an admin user unless the username is taken.
func (b *Bank) SeedAdmin(ctx context.Context, username, password string) error {
	u, err := b.Register(ctx, models.Registration{
		Username: username,
		Password: password,
		Email:    username + "@gophbank.local",
		FullName: "Administrator",
	})
	if errors.Is(err, ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.users[u.ID].Role = models.RoleAdmin
	b.mu.Unlock()
	return nil
}

// Register creates a member.
func (b *Bank) Register(ctx context.Context, r models.Registration) (models.User, error) {
	if r.Username == "" || r.Password == "" || r.Email == "" || r.FullName == "" {
		return models.User{}, fail(ErrInvalid, "username, password, email and full_name are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), b.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Username, r.Username) {
			return models.User{}, fail(ErrConflict, "username already exists")
		}
		if strings.EqualFold(u.Email, r.Email) {
			return models.User{}, fail(ErrConflict, "email already exists")
		}
	}
	u := &user{
		User: models.User{
			ID:        uuid.NewString(),
			Username:  r.Username,
			FullName:  r.FullName,
			Email:     r.Email,
			Role:      models.RoleMember,
			CreatedAt: models.NewTimestamp(b.now()),
		},
		hash: hash,
	}
	b.users[u.ID] = u
	return u.User, nil
}

// Authenticate checks credentials.
func (b *Bank) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	b.mu.RLock()
	var found *user
	for _, u := range b.users {
		if u.Username == username {
			found = u
			break
		}
	}
	b.mu.RUnlock()
	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(password)) != nil {
		return models.User{}, fail(ErrAuth, "invalid username or password")
	}
	return found.User, nil
}

// User returns one user.
func (b *Bank) User(ctx context.Context, id string) (models.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[id]
	if !ok {
		return models.User{}, fail(ErrNotFound, "user not found")
	}
	return u.User, nil
}

// Users lists every user by creation time.
func (b *Bank) Users(ctx context.Context) ([]models.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.User, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, u.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt.Time) })
	return out, nil
}

// UpdateProfile changes the non-empty fields of p.
func (b *Bank) UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error {
	var hash []byte
	if p.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(p.Password), b.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return fail(ErrNotFound, "user not found")
	}
	if p.FullName != "" {
		u.FullName = p.FullName
	}
	if p.Email != "" {
		u.Email = p.Email
	}
	if hash != nil {
		u.hash = hash
	}
	return nil
}

// DeleteUser removes a user together with their accounts and loans.
func (b *Bank) DeleteUser(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[id]; !ok {
		return fail(ErrNotFound, "user not found")
	}
	delete(b.users, id)
	for aid, a := range b.accounts {
		if a.OwnerID == id {
			delete(b.accounts, aid)
		}
	}
	for lid, l := range b.loans {
		if l.UserID == id {
			delete(b.loans, lid)
		}
	}
	return nil
}

// Accounts lists the accounts of owner, or every account when owner is empty.
func (b *Bank) Accounts(ctx context.Context, owner string) ([]models.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Account, 0)
	for _, a := range b.accounts {
		if owner == "" || a.OwnerID == owner {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Account returns one account.
func (b *Bank) Account(ctx context.Context, id string) (models.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.accounts[id]
	if !ok {
		return models.Account{}, fail(ErrNotFound, "account not found")
	}
	return *a, nil
}

// CreateAccount opens an account. A positive initial balance is booked as a
// deposit.
func (b *Bank) CreateAccount(ctx context.Context, owner string, n models.NewAccount) (models.Account, error) {
	if n.Type == "" {
		return models.Account{}, fail(ErrInvalid, "account_type is required")
	}
	if n.InitialDeposit.IsNegative() {
		return models.Account{}, fail(ErrInvalid, "initial balance cannot be negative")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[owner]; !ok {
		return models.Account{}, fail(ErrNotFound, "user not found")
	}
	b.nextAccount++
	a := &models.Account{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Type:      n.Type,
		Number:    fmt.Sprintf("%010d", b.nextAccount),
		Balance:   n.InitialDeposit,
		Active:    true,
		CreatedAt: models.NewTimestamp(b.now()),
	}
	b.accounts[a.ID] = a
	if n.InitialDeposit.IsPositive() {
		b.book(a.ID, "", models.TxDeposit, n.InitialDeposit, "initial deposit")
	}
	return *a, nil
}

// CloseAccount deactivates an account with a zero balance.
func (b *Bank) CloseAccount(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.activeLocked(id)
	if err != nil {
		return err
	}
	if !a.Balance.IsZero() {
		return fail(ErrInvalid, "cannot close account with non-zero balance")
	}
	a.Active = false
	return nil
}

func (b *Bank) activeLocked(id string) (*models.Account, error) {
	a, ok := b.accounts[id]
	if !ok {
		return nil, fail(ErrNotFound, "account not found")
	}
	if !a.Active {
		return nil, fail(ErrInvalid, "account is closed")
	}
	return a, nil
}

func (b *Bank) book(account, dest string, typ models.TxType, amount decimal.Decimal, desc string) {
	b.txs = append(b.txs, models.Transaction{
		ID:                   uuid.NewString(),
		AccountID:            account,
		DestinationAccountID: dest,
		Type:                 typ,
		Amount:               amount,
		Description:          desc,
		CreatedAt:            models.NewTimestamp(b.now()),
	})
}

func positive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fail(ErrInvalid, "amount must be positive")
	}
	return nil
}

// Deposit credits an account.
func (b *Bank) Deposit(ctx context.Context, id string, amount decimal.Decimal, desc string) error {
	if err := positive(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.activeLocked(id)
	if err != nil {
		return err
	}
	a.Balance = a.Balance.Add(amount)
	b.book(id, "", models.TxDeposit, amount, desc)
	return nil
}

// Withdraw debits an account.
func (b *Bank) Withdraw(ctx context.Context, id string, amount decimal.Decimal, desc string) error {
	if err := positive(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.withdrawLocked(id, amount, desc)
}

func (b *Bank) withdrawLocked(id string, amount decimal.Decimal, desc string) error {
	a, err := b.activeLocked(id)
	if err != nil {
		return err
	}
	if a.Balance.LessThan(amount) {
		return fail(ErrInvalid, "insufficient funds")
	}
	a.Balance = a.Balance.Sub(amount)
	b.book(id, "", models.TxWithdrawal, amount, desc)
	return nil
}

// Transfer moves money between two accounts as a single ledger entry.
func (b *Bank) Transfer(ctx context.Context, t models.Transfer) error {
	if t.FromAccountID == "" || t.ToAccountID == "" {
		return fail(ErrInvalid, "from_account_id and to_account_id are required")
	}
	if t.FromAccountID == t.ToAccountID {
		return fail(ErrInvalid, "cannot transfer to the same account")
	}
	if err := positive(t.Amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	from, err := b.activeLocked(t.FromAccountID)
	if err != nil {
		return err
	}
	to, err := b.activeLocked(t.ToAccountID)
	if err != nil {
		return err
	}
	if from.Balance.LessThan(t.Amount) {
		return fail(ErrInvalid, "insufficient funds")
	}
	from.Balance = from.Balance.Sub(t.Amount)
	to.Balance = to.Balance.Add(t.Amount)
	b.book(from.ID, to.ID, models.TxTransfer, t.Amount, t.Description)
	return nil
}

// AccountTransactions lists the entries touching one account.
func (b *Bank) AccountTransactions(ctx context.Context, id string) ([]models.Transaction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.accounts[id]; !ok {
		return nil, fail(ErrNotFound, "account not found")
	}
	return b.filterLocked(func(t models.Transaction) bool {
		return t.AccountID == id || t.DestinationAccountID == id
	}), nil
}

// UserTransactions lists the entries touching any account of the user.
func (b *Bank) UserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	owned := map[string]bool{}
	for _, a := range b.accounts {
		if a.OwnerID == userID {
			owned[a.ID] = true
		}
	}
	return b.filterLocked(func(t models.Transaction) bool {
		return owned[t.AccountID] || owned[t.DestinationAccountID]
	}), nil
}

func (b *Bank) filterLocked(keep func(models.Transaction) bool) []models.Transaction {
	out := make([]models.Transaction, 0)
	for _, t := range b.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
