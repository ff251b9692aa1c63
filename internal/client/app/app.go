// Package app wires the session, cache, router and view controllers into one
// client application and owns the state they share.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/client/session"
	"github.com/atinyakov/GophBank/internal/client/views"
	"github.com/atinyakov/GophBank/internal/models"
)

// ViewState is the externally visible state of the application.
type ViewState struct {
	Current         router.View
	PendingMutation bool
}

// App is a signed-in or signed-out client session.
type App struct {
	Gate    *session.Gate
	Cache   *cache.Cache
	Router  *router.Router
	Mutator *views.Mutator

	Dashboard    *views.Dashboard
	Accounts     *views.Accounts
	Transfers    *views.Transfers
	Transactions *views.Transactions
	Loans        *views.Loans
	Profile      *views.Profile

	renderer router.Renderer
	env      *views.Env
	log      *zap.Logger

	mu    sync.Mutex
	admin *views.Admin
}

// New builds the application around client. The token is persisted in store.
func New(client *api.Client, store session.TokenStore, renderer router.Renderer, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	gate := session.NewGate(client, store, log.Named("session"))
	c := cache.New(client, log.Named("cache"))
	r := router.New(gate, renderer, log.Named("router"))
	mut := views.NewMutator(c, r, log.Named("mutation"))

	env := &views.Env{
		Cache:    c,
		Remote:   client,
		Session:  gate,
		Renderer: renderer,
		Mutator:  mut,
		Log:      log.Named("views"),
	}
	a := &App{
		Gate:         gate,
		Cache:        c,
		Router:       r,
		Mutator:      mut,
		Dashboard:    views.NewDashboard(env),
		Accounts:     views.NewAccounts(env),
		Transfers:    views.NewTransfers(env),
		Transactions: views.NewTransactions(env, r),
		Loans:        views.NewLoans(env),
		Profile:      views.NewProfile(env),
		renderer:     renderer,
		env:          env,
		log:          log,
	}

	r.Handle(router.Dashboard, a.Dashboard)
	r.Handle(router.Accounts, a.Accounts)
	r.Handle(router.Transfers, a.Transfers)
	r.Handle(router.Transactions, a.Transactions)
	r.Handle(router.Loans, a.Loans)
	r.Handle(router.Profile, a.Profile)

	client.OnUnauthorized(gate.Expire)
	gate.OnSignOut(a.signedOut)
	return a
}

// Start restores a stored session when possible and shows the first view.
func (a *App) Start(ctx context.Context) error {
	u, err := a.Gate.Restore(ctx)
	if err != nil || u == nil {
		a.Router.Reset()
		if err != nil {
			a.log.Warn("session restore failed", zap.Error(err))
			a.renderer.ShowError(router.Login, apperr.Message(err))
		}
		return nil
	}
	return a.signedIn(ctx)
}

// Login signs in and opens the dashboard.
func (a *App) Login(ctx context.Context, username, password string) error {
	if a.Gate.Authenticated() {
		a.Gate.Logout()
	}
	if _, err := a.Gate.Login(ctx, username, password); err != nil {
		a.renderer.ShowError(router.Login, apperr.Message(err))
		return err
	}
	return a.signedIn(ctx)
}

// Register creates a user and signs them in.
func (a *App) Register(ctx context.Context, r models.Registration) error {
	if err := a.Gate.Register(ctx, r); err != nil {
		a.renderer.ShowError(router.Register, apperr.Message(err))
		return err
	}
	return a.Login(ctx, r.Username, r.Password)
}

// Logout ends the session.
func (a *App) Logout() {
	a.Gate.Logout()
}

// Navigate opens view v.
func (a *App) Navigate(ctx context.Context, v router.View) error {
	return a.Router.NavigateTo(ctx, v)
}

// State reports the active view and whether a mutation is in flight.
func (a *App) State() ViewState {
	return ViewState{Current: a.Router.Current(), PendingMutation: a.Mutator.Pending()}
}

// Admin returns the admin controller of an admin session.
func (a *App) Admin() (*views.Admin, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.admin == nil {
		return nil, apperr.ErrForbidden
	}
	return a.admin, nil
}

func (a *App) signedIn(ctx context.Context) error {
	if adm, err := views.NewAdmin(a.env); err == nil {
		a.mu.Lock()
		a.admin = adm
		a.mu.Unlock()
		a.Router.InstallAdmin(adm)
	}
	a.Router.PublishNavigation()
	return a.Router.NavigateTo(ctx, router.Dashboard)
}

func (a *App) signedOut(reason string) {
	a.Cache.Reset()
	a.mu.Lock()
	a.admin = nil
	a.mu.Unlock()
	a.Router.RemoveAdmin()
	a.Router.Reset()
	if reason == session.ReasonExpired {
		a.renderer.ShowError(router.Login, "Your session has expired. Please sign in again.")
	}
}
