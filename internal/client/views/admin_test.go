package views

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
	"github.com/atinyakov/GophBank/internal/models"
)

func adminFixture(t *testing.T) (*fixture, *Admin) {
	t.Helper()
	fx := newFixture(t)
	fx.session.user = &models.User{ID: "root", FullName: "Root", Role: models.RoleAdmin}
	fx.bank.users = []models.User{
		{ID: "root", FullName: "Root", Role: models.RoleAdmin},
		{ID: "u1", FullName: "Alice", Role: models.RoleMember},
	}
	fx.bank.loans = []models.Loan{
		{ID: "L1", UserID: "u1", Status: models.LoanPending, Amount: dec("1000")},
		{ID: "L2", UserID: "ghost", Status: models.LoanApproved, Amount: dec("500")},
		{ID: "L3", UserID: "u1", Status: models.LoanActive, Amount: dec("200")},
	}
	a, err := NewAdmin(fx.env)
	require.NoError(t, err)
	return fx, a
}

func TestNewAdmin_Forbidden(t *testing.T) {
	fx := newFixture(t)
	_, err := NewAdmin(fx.env)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAdminLoad(t *testing.T) {
	_, a := adminFixture(t)
	v, err := a.Load(context.Background())
	require.NoError(t, err)
	m := v.(AdminModel)

	assert.Equal(t, Stats{Users: 2, Accounts: 2, Transactions: 1, Loans: 3}, m.Stats)
	require.Len(t, m.Pending, 1)
	assert.Equal(t, "Alice", m.Pending[0].Applicant)
	require.Len(t, m.Approved, 1)
	assert.Equal(t, "Unknown", m.Approved[0].Applicant)
}

func TestAdminDecisions(t *testing.T) {
	fx, a := adminFixture(t)
	ctx := context.Background()
	_, err := a.Load(ctx)
	require.NoError(t, err)
	usersBefore := fx.bank.Calls("users")

	require.NoError(t, a.Approve(ctx, "L1"))
	require.NoError(t, a.Reject(ctx, "L1"))
	require.NoError(t, a.Activate(ctx, "L2"))
	assert.Equal(t, []string{"Loan approved successfully", "Loan rejected successfully", "Loan activated successfully"}, fx.render.acks)
	assert.Equal(t, usersBefore, fx.bank.Calls("users"), "loan decisions do not touch the user list")

	require.NoError(t, a.DeleteUser(ctx, "u1"))
	assert.Equal(t, usersBefore+1, fx.bank.Calls("users"))
	assert.Equal(t, 1, fx.bank.Calls("delete user"))
	assert.True(t, fx.env.Cache.Loaded(cache.AllUsers))
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	fx, a := adminFixture(t)
	err := a.DeleteUser(context.Background(), "root")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, fx.bank.Calls("delete user"))
	assert.Len(t, fx.render.acks, 1)
}

func TestAdminDetails(t *testing.T) {
	fx, a := adminFixture(t)
	fx.bank.accounts[0].OwnerID = "u1"
	ctx := context.Background()

	d, err := a.UserDetail(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", d.User.FullName)
	require.Len(t, d.Accounts, 1)
	assert.Equal(t, "A", d.Accounts[0].ID)

	loan, payment, err := a.LoanDetail(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", loan.Applicant)
	assert.True(t, payment.Equal(dec("86.07")))

	_, err = a.UserDetail(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotEmpty(t, fx.render.errors)
}
