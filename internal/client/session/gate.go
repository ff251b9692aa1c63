// Package session owns the authenticated session: the token, the signed-in
// user and the transitions between signed in and signed out.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/models"
)

// Sign-out reasons passed to OnSignOut hooks.
const (
	ReasonLogout  = "logged out"
	ReasonExpired = "session expired"
)

// AuthAPI is the part of the bank API the Gate needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (api.LoginResult, error)
	Register(ctx context.Context, r models.Registration) error
	Profile(ctx context.Context) (models.User, error)
	SetToken(token string)
}

// CanAdminister reports whether u may use the admin view.
func CanAdminister(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

// Gate holds the token and user. A user is set only while a token is set.
type Gate struct {
	remote AuthAPI
	store  TokenStore
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	token   string
	user    *models.User
	signOut []func(reason string)
}

// NewGate returns a signed-out Gate.
func NewGate(remote AuthAPI, store TokenStore, log *zap.Logger) *Gate {
	if store == nil {
		store = &MemoryStore{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{remote: remote, store: store, log: log, now: time.Now}
}

// OnSignOut registers fn to run after every logout or expiry.
func (g *Gate) OnSignOut(fn func(reason string)) {
	g.mu.Lock()
	g.signOut = append(g.signOut, fn)
	g.mu.Unlock()
}

// Authenticated reports whether a token is held.
func (g *Gate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token != ""
}

// User returns a copy of the signed-in user, or nil.
func (g *Gate) User() *models.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// IsAdmin reports whether the signed-in user has the admin capability.
func (g *Gate) IsAdmin() bool {
	return CanAdminister(g.User())
}

// Login authenticates and persists the token. Any failure, network included,
// is reported as an auth error and leaves the Gate signed out.
func (g *Gate) Login(ctx context.Context, username, password string) (models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return models.User{}, apperr.Validation("login", "username and password are required")
	}
	res, err := g.remote.Login(ctx, username, password)
	if err != nil {
		g.log.Info("login failed", zap.String("username", username), zap.Error(err))
		if errors.Is(err, apperr.ErrAuth) {
			return models.User{}, err
		}
		return models.User{}, apperr.New(apperr.ErrAuth, "login", apperr.Message(err), err)
	}
	if res.Token == "" {
		return models.User{}, apperr.New(apperr.ErrAuth, "login", "login response carried no token", nil)
	}

	if err := g.store.Save(res.Token); err != nil {
		g.log.Warn("failed to persist token", zap.Error(err))
	}
	g.set(res.Token, &res.User)
	g.log.Info("signed in", zap.String("user_id", res.User.ID), zap.String("role", string(res.User.Role)))
	return res.User, nil
}

// Register creates a user. It does not sign in.
func (g *Gate) Register(ctx context.Context, r models.Registration) error {
	missing := []string{}
	if strings.TrimSpace(r.Username) == "" {
		missing = append(missing, "username")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.FullName) == "" {
		missing = append(missing, "full name")
	}
	if len(missing) > 0 {
		return apperr.Validation("register", "missing "+strings.Join(missing, ", "))
	}
	if err := g.remote.Register(ctx, r); err != nil {
		return err
	}
	g.log.Info("registered", zap.String("username", r.Username))
	return nil
}

// Restore resumes a stored session. It returns (nil, nil) when there is no
// usable token. A network failure keeps the stored token for a later retry.
func (g *Gate) Restore(ctx context.Context) (*models.User, error) {
	token, err := g.store.Load()
	if err != nil {
		g.log.Warn("failed to load token", zap.Error(err))
		return nil, nil
	}
	if token == "" {
		return nil, nil
	}
	if expired(token, g.now()) {
		g.log.Info("stored token expired")
		_ = g.store.Clear()
		return nil, nil
	}

	g.remote.SetToken(token)
	u, err := g.remote.Profile(ctx)
	if err != nil {
		g.remote.SetToken("")
		if errors.Is(err, apperr.ErrAuth) {
			_ = g.store.Clear()
			g.log.Info("stored token rejected")
			return nil, nil
		}
		return nil, err
	}
	g.set(token, &u)
	g.log.Info("session restored", zap.String("user_id", u.ID))
	return g.User(), nil
}

// RefreshProfile replaces the user record with the server's copy.
func (g *Gate) RefreshProfile(ctx context.Context) error {
	u, err := g.remote.Profile(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == "" {
		return apperr.ErrStale
	}
	g.user = &u
	return nil
}

// Logout clears the session and notifies sign-out hooks.
func (g *Gate) Logout() {
	g.clear(ReasonLogout)
}

// Expire is Logout triggered by the server rejecting the token.
func (g *Gate) Expire() {
	if !g.Authenticated() {
		return
	}
	g.clear(ReasonExpired)
}

func (g *Gate) set(token string, u *models.User) {
	g.remote.SetToken(token)
	g.mu.Lock()
	g.token = token
	g.user = u
	g.mu.Unlock()
}

func (g *Gate) clear(reason string) {
	g.mu.Lock()
	g.token = ""
	g.user = nil
	hooks := append([]func(string){}, g.signOut...)
	g.mu.Unlock()

	g.remote.SetToken("")
	if err := g.store.Clear(); err != nil {
		g.log.Warn("failed to clear token", zap.Error(err))
	}
	g.log.Info("signed out", zap.String("reason", reason))
	for _, fn := range hooks {
		fn(reason)
	}
}

// expired reports whether token is a JWT whose exp lies before now. Tokens
// that do not parse are left for the server to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
