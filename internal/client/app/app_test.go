package app

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/client/session"
	"github.com/atinyakov/GophBank/internal/client/views"
	"github.com/atinyakov/GophBank/internal/models"
	handler "github.com/atinyakov/GophBank/internal/server/handler/http"
	"github.com/atinyakov/GophBank/internal/service"
)

type recorder struct {
	mu     sync.Mutex
	shown  []router.View
	models map[router.View]any
	errors map[router.View]string
	acks   []string
	nav    []router.View
}

func newRecorder() *recorder {
	return &recorder{models: map[router.View]any{}, errors: map[router.View]string{}}
}

func (r *recorder) ShowView(v router.View) {
	r.mu.Lock()
	r.shown = append(r.shown, v)
	r.mu.Unlock()
}

func (r *recorder) Render(v router.View, model any) {
	r.mu.Lock()
	r.models[v] = model
	r.mu.Unlock()
}

func (r *recorder) ShowError(v router.View, msg string) {
	r.mu.Lock()
	r.errors[v] = msg
	r.mu.Unlock()
}

func (r *recorder) Acknowledge(msg string) {
	r.mu.Lock()
	r.acks = append(r.acks, msg)
	r.mu.Unlock()
}

func (r *recorder) SetNavigation(v []router.View) {
	r.mu.Lock()
	r.nav = v
	r.mu.Unlock()
}

func (r *recorder) model(v router.View) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.models[v]
}

func (r *recorder) errorOn(v router.View) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[v]
}

// newBankServer runs the development server with a seeded admin.
func newBankServer(t *testing.T) *httptest.Server {
	t.Helper()
	bank := service.NewBank(bcrypt.MinCost)
	require.NoError(t, bank.SeedAdmin(context.Background(), "admin", "admin"))
	users := &handler.UserHandler{Users: bank, Secret: []byte("secret"), TTL: time.Hour}
	srv := httptest.NewServer(handler.NewRouter(users,
		&handler.AccountHandler{Accounts: bank}, &handler.LoanHandler{Loans: bank}, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	app    *App
	client *api.Client
	rec    *recorder
	store  *session.MemoryStore
}

func newFixture(t *testing.T, srv *httptest.Server) *fixture {
	t.Helper()
	client := api.New(srv.URL, srv.Client())
	rec := newRecorder()
	store := &session.MemoryStore{}
	return &fixture{app: New(client, store, rec, zap.NewNop()), client: client, rec: rec, store: store}
}

func (f *fixture) account(t *testing.T, accountType string) models.Account {
	t.Helper()
	accounts, err := f.app.Cache.Accounts(context.Background())
	require.NoError(t, err)
	for _, a := range accounts {
		if a.Type == accountType {
			return a
		}
	}
	t.Fatalf("no %s account", accountType)
	return models.Account{}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTransferEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newBankServer(t))

	require.NoError(t, f.app.Register(ctx, models.Registration{
		Username: "alice", Password: "pw", Email: "alice@x", FullName: "Alice",
	}))
	assert.Equal(t, router.Dashboard, f.app.State().Current)

	require.NoError(t, f.app.Accounts.Open(ctx, "checking", d("100")))
	require.NoError(t, f.app.Accounts.Open(ctx, "savings", decimal.Zero))
	a, b := f.account(t, "checking"), f.account(t, "savings")

	require.NoError(t, f.app.Navigate(ctx, router.Transfers))
	require.NoError(t, f.app.Transfers.Transfer(ctx, models.Transfer{
		FromAccountID: a.ID, ToAccountID: b.ID, Amount: d("40"),
	}))

	assert.True(t, f.account(t, "checking").Balance.Equal(d("60")))
	assert.True(t, f.account(t, "savings").Balance.Equal(d("40")))
	assert.False(t, f.app.State().PendingMutation)

	details, err := f.app.Accounts.Details(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, details.Entries, 2)
	var signed []string
	for _, e := range details.Entries {
		signed = append(signed, e.Signed.String())
	}
	assert.ElementsMatch(t, []string{"100", "-40"}, signed)

	require.NoError(t, f.app.Navigate(ctx, router.Dashboard))
	dash, ok := f.rec.model(router.Dashboard).(views.DashboardModel)
	require.True(t, ok)
	assert.True(t, dash.TotalBalance.Equal(d("100")))
}

func TestMemberCannotReachAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newBankServer(t))
	require.NoError(t, f.app.Register(ctx, models.Registration{
		Username: "bob", Password: "pw", Email: "bob@x", FullName: "Bob",
	}))

	require.NoError(t, f.app.Navigate(ctx, router.Accounts))
	require.NoError(t, f.app.Navigate(ctx, router.Admin))
	assert.Equal(t, router.Dashboard, f.app.State().Current)

	_, err := f.app.Admin()
	assert.Error(t, err)
}

func TestAdminSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newBankServer(t))
	require.NoError(t, f.app.Login(ctx, "admin", "admin"))

	require.NoError(t, f.app.Navigate(ctx, router.Admin))
	assert.Equal(t, router.Admin, f.app.State().Current)

	m, ok := f.rec.model(router.Admin).(views.AdminModel)
	require.True(t, ok)
	assert.Equal(t, 1, m.Stats.Users)

	adm, err := f.app.Admin()
	require.NoError(t, err)
	require.NotNil(t, adm)

	f.app.Logout()
	assert.Equal(t, router.Login, f.app.State().Current)
	_, err = f.app.Admin()
	assert.Error(t, err)
}

func TestExpiredSessionReturnsToLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newBankServer(t))
	require.NoError(t, f.app.Register(ctx, models.Registration{
		Username: "carol", Password: "pw", Email: "carol@x", FullName: "Carol",
	}))

	require.NoError(t, f.app.Navigate(ctx, router.Accounts))

	// a token the server no longer accepts; the mutation always reaches the server
	f.client.SetToken("revoked")
	err := f.app.Accounts.Open(ctx, "checking", d("10"))
	assert.ErrorIs(t, err, apperr.ErrAuth)

	assert.Equal(t, router.Login, f.app.State().Current)
	assert.False(t, f.app.Gate.Authenticated())
	assert.Equal(t, "Your session has expired. Please sign in again.", f.rec.errorOn(router.Login))
	token, _ := f.store.Load()
	assert.Empty(t, token)
}

func TestAdminViewSeesOwnMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newBankServer(t))
	require.NoError(t, f.app.Login(ctx, "admin", "admin"))

	require.NoError(t, f.app.Navigate(ctx, router.Admin))
	before, ok := f.rec.model(router.Admin).(views.AdminModel)
	require.True(t, ok)
	assert.Zero(t, before.Stats.Accounts)
	assert.Zero(t, before.Stats.Loans)

	require.NoError(t, f.app.Navigate(ctx, router.Accounts))
	require.NoError(t, f.app.Accounts.Open(ctx, "checking", d("500")))
	require.NoError(t, f.app.Navigate(ctx, router.Loans))
	require.NoError(t, f.app.Loans.Apply(ctx, models.LoanApplication{
		Type: "personal", Amount: d("1000"), TermMonths: 12, InterestRate: d("5"),
	}))

	require.NoError(t, f.app.Navigate(ctx, router.Admin))
	after, ok := f.rec.model(router.Admin).(views.AdminModel)
	require.True(t, ok)
	assert.Equal(t, 1, after.Stats.Accounts)
	assert.Equal(t, 1, after.Stats.Loans)
	assert.Len(t, after.Pending, 1)
}

func TestStartRestoresStoredSession(t *testing.T) {
	ctx := context.Background()
	srv := newBankServer(t)

	first := newFixture(t, srv)
	require.NoError(t, first.app.Register(ctx, models.Registration{
		Username: "dave", Password: "pw", Email: "dave@x", FullName: "Dave",
	}))
	token, err := first.store.Load()
	require.NoError(t, err)

	second := newFixture(t, srv)
	require.NoError(t, second.store.Save(token))
	require.NoError(t, second.app.Start(ctx))
	assert.Equal(t, router.Dashboard, second.app.State().Current)
	assert.Equal(t, "dave", second.app.Gate.User().Username)

	third := newFixture(t, srv)
	require.NoError(t, third.app.Start(ctx))
	assert.Equal(t, router.Login, third.app.State().Current)
}

func TestLoginFailureStaysOnLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newBankServer(t))
	require.NoError(t, f.app.Start(ctx))

	assert.Error(t, f.app.Login(ctx, "admin", "wrong"))
	assert.Equal(t, router.Login, f.app.State().Current)
	assert.NotEmpty(t, f.rec.errorOn(router.Login))
}
