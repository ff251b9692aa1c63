package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophBank/internal/client/apperr"
)

type fakeSession struct {
	authed, admin bool
}

func (s *fakeSession) Authenticated() bool { return s.authed }
func (s *fakeSession) IsAdmin() bool       { return s.admin }

type recorder struct {
	mu       sync.Mutex
	shown    []View
	rendered []View
	models   []any
	errors   map[View]string
	nav      []View
	acks     []string
}

func newRecorder() *recorder { return &recorder{errors: map[View]string{}} }

func (r *recorder) ShowView(v View) {
	r.mu.Lock()
	r.shown = append(r.shown, v)
	r.mu.Unlock()
}

func (r *recorder) Render(v View, model any) {
	r.mu.Lock()
	r.rendered = append(r.rendered, v)
	r.models = append(r.models, model)
	r.mu.Unlock()
}

func (r *recorder) ShowError(v View, msg string) {
	r.mu.Lock()
	r.errors[v] = msg
	r.mu.Unlock()
}

func (r *recorder) Acknowledge(msg string) {
	r.mu.Lock()
	r.acks = append(r.acks, msg)
	r.mu.Unlock()
}

func (r *recorder) SetNavigation(views []View) {
	r.mu.Lock()
	r.nav = views
	r.mu.Unlock()
}

func counting(n *int, model any) Loader {
	return LoaderFunc(func(ctx context.Context) (any, error) {
		*n++
		return model, nil
	})
}

func TestNavigateIdempotent(t *testing.T) {
	rec := newRecorder()
	r := New(&fakeSession{authed: true}, rec, nil)
	loads := 0
	r.Handle(Dashboard, counting(&loads, "dash"))
	ctx := context.Background()

	require.NoError(t, r.NavigateTo(ctx, Dashboard))
	require.NoError(t, r.NavigateTo(ctx, Dashboard))

	assert.Equal(t, 1, loads)
	assert.Equal(t, []View{Dashboard}, rec.shown)
	assert.Equal(t, []any{"dash"}, rec.models)
}

func TestAuthRedirects(t *testing.T) {
	tests := []struct {
		name   string
		authed bool
		target View
		want   View
	}{
		{"signed out to accounts", false, Accounts, Login},
		{"signed out to register", false, Register, Register},
		{"signed out to admin", false, Admin, Login},
		{"signed in to login", true, Login, Dashboard},
		{"signed in to register", true, Register, Dashboard},
		{"signed in to loans", true, Loans, Loans},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			r := New(&fakeSession{authed: tt.authed}, rec, nil)
			require.NoError(t, r.NavigateTo(context.Background(), tt.target))
			assert.Equal(t, tt.want, r.Current())
		})
	}
}

func TestRedirectRechecksIdempotence(t *testing.T) {
	rec := newRecorder()
	r := New(&fakeSession{authed: true}, rec, nil)
	loads := 0
	r.Handle(Dashboard, counting(&loads, nil))
	ctx := context.Background()

	require.NoError(t, r.NavigateTo(ctx, Dashboard))
	require.NoError(t, r.NavigateTo(ctx, Admin))
	require.NoError(t, r.NavigateTo(ctx, Login))

	assert.Equal(t, 1, loads)
	assert.Equal(t, Dashboard, r.Current())
}

func TestAdminGating(t *testing.T) {
	t.Run("member ends on dashboard", func(t *testing.T) {
		rec := newRecorder()
		r := New(&fakeSession{authed: true}, rec, nil)
		adminLoads := 0
		r.InstallAdmin(counting(&adminLoads, nil))
		r.Handle(Accounts, counting(new(int), nil))
		ctx := context.Background()

		require.NoError(t, r.NavigateTo(ctx, Accounts))
		require.NoError(t, r.NavigateTo(ctx, Admin))
		assert.Equal(t, Dashboard, r.Current())
		assert.Zero(t, adminLoads)
	})

	t.Run("admin without installed view", func(t *testing.T) {
		r := New(&fakeSession{authed: true, admin: true}, newRecorder(), nil)
		require.NoError(t, r.NavigateTo(context.Background(), Admin))
		assert.Equal(t, Dashboard, r.Current())
	})

	t.Run("admin reaches admin", func(t *testing.T) {
		rec := newRecorder()
		r := New(&fakeSession{authed: true, admin: true}, rec, nil)
		loads := 0
		r.InstallAdmin(counting(&loads, "stats"))
		r.InstallAdmin(counting(new(int), "other"))
		require.NoError(t, r.NavigateTo(context.Background(), Admin))
		assert.Equal(t, Admin, r.Current())
		assert.Equal(t, 1, loads)
		assert.Contains(t, rec.nav, Admin)

		r.RemoveAdmin()
		assert.NotContains(t, rec.nav, Admin)
		require.NoError(t, r.NavigateTo(context.Background(), Loans))
		require.NoError(t, r.NavigateTo(context.Background(), Admin))
		assert.Equal(t, Dashboard, r.Current())
	})
}

func TestUnknownView(t *testing.T) {
	r := New(&fakeSession{authed: true}, newRecorder(), nil)
	require.NoError(t, r.NavigateTo(context.Background(), Loans))
	err := r.NavigateTo(context.Background(), View("vault"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, Loans, r.Current())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   error
		wantShown bool
	}{
		{"server", &apperr.Error{Kind: apperr.ErrServer, Message: "boom"}, nil, true},
		{"network", apperr.New(apperr.ErrNetwork, "accounts", "", errors.New("down")), nil, true},
		{"auth", &apperr.Error{Kind: apperr.ErrAuth}, nil, false},
		{"classification", fmt.Errorf("t9: %w", apperr.ErrClassification), apperr.ErrClassification, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			r := New(&fakeSession{authed: true}, rec, nil)
			r.Handle(Accounts, LoaderFunc(func(ctx context.Context) (any, error) { return nil, tt.err }))

			err := r.NavigateTo(context.Background(), Accounts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			_, shown := rec.errors[Accounts]
			assert.Equal(t, tt.wantShown, shown)
			assert.Equal(t, Accounts, r.Current(), "failed load must not revert navigation")
			assert.Empty(t, rec.rendered)
		})
	}
}

func TestStaleLoadDiscarded(t *testing.T) {
	rec := newRecorder()
	r := New(&fakeSession{authed: true}, rec, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	r.Handle(Accounts, LoaderFunc(func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "accounts", nil
	}))
	r.Handle(Loans, counting(new(int), "loans"))
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- r.NavigateTo(ctx, Accounts) }()
	<-started
	require.NoError(t, r.NavigateTo(ctx, Loans))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, Loans, r.Current())
	assert.Equal(t, []any{"loans"}, rec.models)
}

func TestResetAndRefresh(t *testing.T) {
	sess := &fakeSession{authed: true}
	rec := newRecorder()
	r := New(sess, rec, nil)
	loads := 0
	r.Handle(Transactions, counting(&loads, nil))
	ctx := context.Background()

	require.NoError(t, r.NavigateTo(ctx, Transactions))
	require.NoError(t, r.Refresh(ctx))
	assert.Equal(t, 2, loads)

	sess.authed = false
	r.Reset()
	assert.Equal(t, Login, r.Current())
	assert.Equal(t, []View{Login, Register}, rec.nav)
	assert.Equal(t, Login, rec.shown[len(rec.shown)-1])
}

func TestNavigation(t *testing.T) {
	sess := &fakeSession{}
	r := New(sess, newRecorder(), nil)
	assert.Equal(t, []View{Login, Register}, r.Navigation())

	sess.authed = true
	assert.Equal(t, memberViews, r.Navigation())
}
