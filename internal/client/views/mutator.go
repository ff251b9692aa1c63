package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/cache"
)

// Refresher re-renders the active view.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Mutator runs state-changing calls: one in flight per action, and on success
// the affected partitions are refetched before the view is redrawn.
type Mutator struct {
	cache   *cache.Cache
	router  Refresher
	log     *zap.Logger
	mu      sync.Mutex
	pending map[string]bool
}

// NewMutator returns a Mutator invalidating c and refreshing r.
func NewMutator(c *cache.Cache, r Refresher, log *zap.Logger) *Mutator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mutator{cache: c, router: r, log: log, pending: make(map[string]bool)}
}

// Pending reports whether any mutation is in flight.
func (m *Mutator) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) > 0
}

// Run performs call under action. A second Run of the same action while the
// first is in flight fails with apperr.ErrBusy. A failed call invalidates
// nothing. Refetch failures after a successful call are logged and left to
// the view's error state.
func (m *Mutator) Run(ctx context.Context, action string, call func(ctx context.Context) error, parts ...cache.Partition) error {
	m.mu.Lock()
	if m.pending[action] {
		m.mu.Unlock()
		return apperr.New(apperr.ErrBusy, action, "", nil)
	}
	m.pending[action] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, action)
		m.mu.Unlock()
	}()

	if err := call(ctx); err != nil {
		m.log.Info("mutation failed", zap.String("action", action), zap.Error(err))
		return err
	}
	m.log.Info("mutation done", zap.String("action", action))

	if err := m.cache.Invalidate(ctx, parts...); err != nil {
		m.log.Warn("refetch after mutation failed", zap.String("action", action), zap.Error(err))
	}
	if err := m.router.Refresh(ctx); err != nil {
		m.log.Warn("refresh after mutation failed", zap.String("action", action), zap.Error(err))
	}
	return nil
}
