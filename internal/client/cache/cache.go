// Package cache holds the entity lists shown by the views. A partition is
// fetched once per session and served from memory until a mutation
// invalidates it.
package cache

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/models"
)

// Partition names one cached list.
type Partition string

const (
	Accounts     Partition = "accounts"
	Transactions Partition = "transactions"
	Loans        Partition = "loans"
	AllUsers     Partition = "admin_users"
	AllAccounts  Partition = "admin_accounts"
	AllLoans     Partition = "admin_loans"
)

// Fetcher is the part of the bank API the cache reads through.
type Fetcher interface {
	Accounts(ctx context.Context, f api.AccountFilter) ([]models.Account, error)
	UserTransactions(ctx context.Context) ([]models.Transaction, error)
	Loans(ctx context.Context, all bool) ([]models.Loan, error)
	Users(ctx context.Context) ([]models.User, error)
}

type entry struct {
	data   any
	loaded bool
	// once is set after the first stored fetch; Invalidate refetches only
	// such partitions.
	once bool
	// ver counts invalidations. A fetch started under an older ver is not stored.
	ver uint64
	// gen counts stored fetches.
	gen uint64
}

// Cache is safe for concurrent use. No lock is held during a fetch.
type Cache struct {
	remote Fetcher
	log    *zap.Logger
	group  singleflight.Group

	mu    sync.Mutex
	epoch uint64
	parts map[Partition]*entry
}

// New returns an empty cache.
func New(remote Fetcher, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{remote: remote, log: log, parts: make(map[Partition]*entry)}
}

func (c *Cache) entry(p Partition) *entry {
	e, ok := c.parts[p]
	if !ok {
		e = &entry{}
		c.parts[p] = e
	}
	return e
}

// Generation returns how many fetches of p have been stored this session.
func (c *Cache) Generation(p Partition) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(p).gen
}

// Loaded reports whether p currently holds a fresh snapshot.
func (c *Cache) Loaded(p Partition) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(p).loaded
}

func (c *Cache) get(ctx context.Context, p Partition) (any, error) {
	c.mu.Lock()
	e := c.entry(p)
	if e.loaded {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	epoch, ver := c.epoch, e.ver
	c.mu.Unlock()

	key := fmt.Sprintf("%s/%d/%d", p, epoch, ver)
	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := c.fetch(ctx, p)
		if err != nil {
			c.log.Debug("fetch failed", zap.String("partition", string(p)), zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			c.log.Debug("fetch discarded after reset", zap.String("partition", string(p)))
			return nil, apperr.ErrStale
		}
		e := c.entry(p)
		if e.ver != ver {
			// invalidated while in flight; the caller still gets what it asked for
			c.log.Debug("fetch superseded", zap.String("partition", string(p)))
			return data, nil
		}
		e.data, e.loaded, e.once = data, true, true
		e.gen++
		c.log.Debug("fetch stored", zap.String("partition", string(p)), zap.Uint64("generation", e.gen))
		return data, nil
	})
	return v, err
}

func (c *Cache) fetch(ctx context.Context, p Partition) (any, error) {
	switch p {
	case Accounts:
		return c.remote.Accounts(ctx, api.AccountFilter{})
	case Transactions:
		return c.remote.UserTransactions(ctx)
	case Loans:
		return c.remote.Loans(ctx, false)
	case AllUsers:
		return c.remote.Users(ctx)
	case AllAccounts:
		return c.remote.Accounts(ctx, api.AccountFilter{All: true})
	case AllLoans:
		return c.remote.Loans(ctx, true)
	}
	return nil, fmt.Errorf("unknown partition %q", p)
}

// Invalidate marks parts stale and refetches those that had been loaded. It
// returns once every refetch has settled. A failed refetch leaves its
// partition stale so the next read retries.
func (c *Cache) Invalidate(ctx context.Context, parts ...Partition) error {
	var refetch []Partition
	c.mu.Lock()
	for _, p := range parts {
		e := c.entry(p)
		if e.once {
			refetch = append(refetch, p)
		}
		e.loaded, e.data = false, nil
		e.ver++
	}
	c.mu.Unlock()
	c.log.Debug("invalidated", zap.Any("partitions", parts))

	var g errgroup.Group
	for _, p := range refetch {
		g.Go(func() error {
			_, err := c.get(ctx, p)
			return err
		})
	}
	return g.Wait()
}

// Reset drops every partition. Fetches still in flight are discarded.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.parts = make(map[Partition]*entry)
	c.epoch++
	c.mu.Unlock()
	c.log.Debug("cache reset")
}

// Accounts returns the user's accounts.
func (c *Cache) Accounts(ctx context.Context) ([]models.Account, error) {
	return typed[models.Account](c.get(ctx, Accounts))
}

// Transactions returns every ledger entry of the user's accounts.
func (c *Cache) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return typed[models.Transaction](c.get(ctx, Transactions))
}

// Loans returns the user's loans.
func (c *Cache) Loans(ctx context.Context) ([]models.Loan, error) {
	return typed[models.Loan](c.get(ctx, Loans))
}

// AllUsers returns every user. Admin only.
func (c *Cache) AllUsers(ctx context.Context) ([]models.User, error) {
	return typed[models.User](c.get(ctx, AllUsers))
}

// AllAccounts returns every account. Admin only.
func (c *Cache) AllAccounts(ctx context.Context) ([]models.Account, error) {
	return typed[models.Account](c.get(ctx, AllAccounts))
}

// AllLoans returns every loan. Admin only.
func (c *Cache) AllLoans(ctx context.Context) ([]models.Loan, error) {
	return typed[models.Loan](c.get(ctx, AllLoans))
}

// typed returns a copy of the cached slice. Neither appends nor element
// writes by a view reach the cache.
func typed[T any](v any, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	s, _ := v.([]T)
	out := make([]T, len(s))
	copy(out, s)
	return out, nil
}
