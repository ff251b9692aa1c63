// Package router tracks the active view and loads its data. Navigation is
// gated by the session: signed-out users only reach login and register, and
// the admin view needs the admin capability.
package router

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/apperr"
)

// View names a screen.
type View string

const (
	None         View = ""
	Login        View = "login"
	Register     View = "register"
	Dashboard    View = "dashboard"
	Accounts     View = "accounts"
	Transfers    View = "transfers"
	Transactions View = "transactions"
	Loans        View = "loans"
	Profile      View = "profile"
	Admin        View = "admin"
)

var memberViews = []View{Dashboard, Accounts, Transfers, Transactions, Loans, Profile}

// Loader produces the model rendered for a view.
type Loader interface {
	Load(ctx context.Context) (any, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (any, error)

func (f LoaderFunc) Load(ctx context.Context) (any, error) { return f(ctx) }

// Renderer displays views. Calls may come from any goroutine.
type Renderer interface {
	ShowView(v View)
	Render(v View, model any)
	ShowError(v View, msg string)
	// Acknowledge shows msg and blocks until the user dismisses it.
	Acknowledge(msg string)
	SetNavigation(views []View)
}

// Session is what the router asks the session about.
type Session interface {
	Authenticated() bool
	IsAdmin() bool
}

// Router owns the current view. Loads run without the lock held; a load that
// finishes after a newer navigation is dropped.
type Router struct {
	session  Session
	renderer Renderer
	log      *zap.Logger

	mu      sync.Mutex
	current View
	seq     uint64
	loaders map[View]Loader
	admin   Loader
}

// New returns a router showing nothing. Start it with Reset or NavigateTo.
func New(session Session, renderer Renderer, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		session:  session,
		renderer: renderer,
		log:      log,
		loaders:  make(map[View]Loader),
	}
}

// Handle sets the loader of a member view, or of login and register.
func (r *Router) Handle(v View, l Loader) {
	r.mu.Lock()
	r.loaders[v] = l
	r.mu.Unlock()
}

// InstallAdmin makes the admin view reachable. A second call is a no-op.
func (r *Router) InstallAdmin(l Loader) {
	r.mu.Lock()
	if r.admin != nil {
		r.mu.Unlock()
		return
	}
	r.admin = l
	nav := r.navigationLocked()
	r.mu.Unlock()
	r.log.Info("admin view installed")
	r.renderer.SetNavigation(nav)
}

// RemoveAdmin drops the admin view and its affordance.
func (r *Router) RemoveAdmin() {
	r.mu.Lock()
	if r.admin == nil {
		r.mu.Unlock()
		return
	}
	r.admin = nil
	nav := r.navigationLocked()
	r.mu.Unlock()
	r.renderer.SetNavigation(nav)
}

// Current returns the active view.
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigation lists the views reachable right now.
func (r *Router) Navigation() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.navigationLocked()
}

func (r *Router) navigationLocked() []View {
	if !r.session.Authenticated() {
		return []View{Login, Register}
	}
	nav := append([]View{}, memberViews...)
	if r.admin != nil {
		nav = append(nav, Admin)
	}
	return nav
}

func known(v View) bool {
	switch v {
	case Login, Register, Dashboard, Accounts, Transfers, Transactions, Loans, Profile, Admin:
		return true
	}
	return false
}

// resolveLocked applies the auth and capability redirects.
func (r *Router) resolveLocked(target View) View {
	authed := r.session.Authenticated()
	switch {
	case !authed && target != Login && target != Register:
		return Login
	case authed && (target == Login || target == Register):
		return Dashboard
	case target == Admin && (r.admin == nil || !r.session.IsAdmin()):
		return Dashboard
	}
	return target
}

// NavigateTo activates target and renders its data. Navigating to the current
// view does nothing. Load failures are rendered in the view and only
// classification defects are returned.
func (r *Router) NavigateTo(ctx context.Context, target View) error {
	if !known(target) {
		return apperr.Validation("navigate", "unknown view "+string(target))
	}

	r.mu.Lock()
	if target == r.current {
		r.mu.Unlock()
		return nil
	}
	resolved := r.resolveLocked(target)
	if resolved == r.current {
		r.mu.Unlock()
		return nil
	}
	if resolved != target {
		r.log.Debug("navigation redirected", zap.String("requested", string(target)), zap.String("view", string(resolved)))
	}
	r.current = resolved
	r.seq++
	seq := r.seq
	loader := r.loaderLocked(resolved)
	r.mu.Unlock()

	r.log.Debug("navigate", zap.String("view", string(resolved)))
	r.renderer.ShowView(resolved)
	return r.load(ctx, resolved, seq, loader)
}

// Refresh reloads the current view, e.g. after a mutation.
func (r *Router) Refresh(ctx context.Context) error {
	r.mu.Lock()
	v := r.current
	if v == None {
		r.mu.Unlock()
		return nil
	}
	r.seq++
	seq := r.seq
	loader := r.loaderLocked(v)
	r.mu.Unlock()
	return r.load(ctx, v, seq, loader)
}

// Reset is called at sign-out. It shows login and republishes navigation.
func (r *Router) Reset() {
	r.mu.Lock()
	r.current = Login
	r.seq++
	nav := r.navigationLocked()
	r.mu.Unlock()

	r.renderer.SetNavigation(nav)
	r.renderer.ShowView(Login)
}

// PublishNavigation pushes the current affordances to the renderer.
func (r *Router) PublishNavigation() {
	r.renderer.SetNavigation(r.Navigation())
}

func (r *Router) loaderLocked(v View) Loader {
	if v == Admin {
		return r.admin
	}
	return r.loaders[v]
}

func (r *Router) load(ctx context.Context, v View, seq uint64, loader Loader) error {
	if loader == nil {
		return nil
	}
	model, err := loader.Load(ctx)

	r.mu.Lock()
	stale := r.seq != seq
	r.mu.Unlock()
	if stale {
		r.log.Debug("load discarded", zap.String("view", string(v)))
		return nil
	}

	if err != nil {
		r.log.Warn("view load failed", zap.String("view", string(v)), zap.Error(err))
		if !apperr.Global(err) {
			r.renderer.ShowError(v, apperr.Message(err))
		}
		if errors.Is(err, apperr.ErrClassification) {
			return err
		}
		return nil
	}
	r.renderer.Render(v, model)
	return nil
}
