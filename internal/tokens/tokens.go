// Package tokens keeps the API tokens accepted by the service in memory and
// refreshes them from a repository.
package tokens

import (
	"context"
	"errors"
	"sync"
	"time"

	"invitegen/internal/infra/logging"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady signals that tokens have not been loaded yet.
	ErrStoreNotReady = errors.New("token store not ready")
	// ErrScopeDenied signals that the token may not call the endpoint.
	ErrScopeDenied = errors.New("token scope does not allow this endpoint")
)

// Scope is the set of endpoint groups a token may call. An empty scope allows
// everything.
type Scope map[string]bool

// Allows reports whether the scope grants name.
func (s Scope) Allows(name string) bool {
	return len(s) == 0 || s[name]
}

// Entry is one token's settings.
type Entry struct {
	RateLimit int
	Scope     Scope
}

// Repository loads the full token set.
type Repository interface {
	LoadTokens(ctx context.Context) (map[string]Entry, error)
}

// Cache holds the current token set. The zero value is not ready.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewCache() *Cache { return &Cache{} }

// Replace swaps in a new token set.
func (c *Cache) Replace(m map[string]Entry) {
	entries := make(map[string]Entry, len(m))
	for k, v := range m {
		entries[k] = v
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// Ready reports whether a token set has been loaded at least once.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries != nil
}

func (c *Cache) Lookup(token string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[token]
	return e, ok
}

// RateLimit returns the token's limit, or 0 for unknown tokens.
func (c *Cache) RateLimit(token string) int {
	e, _ := c.Lookup(token)
	return e.RateLimit
}

// Validate checks that token is known and its scope grants scope.
func (c *Cache) Validate(token, scope string) error {
	if !c.Ready() {
		return ErrStoreNotReady
	}
	e, ok := c.Lookup(token)
	if !ok {
		return ErrInvalidAPIKey
	}
	if !e.Scope.Allows(scope) {
		return ErrScopeDenied
	}
	return nil
}

// Reloader periodically refreshes a Cache from a Repository.
type Reloader struct {
	repo     Repository
	cache    *Cache
	interval time.Duration
}

func NewReloader(repo Repository, cache *Cache, interval time.Duration) *Reloader {
	return &Reloader{repo: repo, cache: cache, interval: interval}
}

// LoadOnce replaces the cache with the repository contents. On error the
// cache keeps its previous contents.
func (r *Reloader) LoadOnce(ctx context.Context) error {
	m, err := r.repo.LoadTokens(ctx)
	if err != nil {
		return err
	}
	if m == nil {
		m = map[string]Entry{}
	}
	r.cache.Replace(m)
	return nil
}

// Start reloads in the background until ctx is done.
func (r *Reloader) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.LoadOnce(ctx); err != nil {
					logging.Error("Failed to reload API tokens", "error", err)
				}
			}
		}
	}()
}
