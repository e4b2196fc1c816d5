// Package query is a small read-through cache for backend resources.
//
// Reads go through Fetch, which serves a stored value while it is younger
// than the stale time and otherwise calls the loader. Concurrent loads of
// the same key share one backend request. Mutating services call Set,
// Remove and InvalidatePrefix to keep lists and details consistent.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/obyektivka/internal/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without reloading.
const DefaultStaleTime = 5 * time.Minute

// Entry is a stored value with the time it was written.
type Entry struct {
	Data     []byte    `json:"data"`
	StoredAt time.Time `json:"stored_at"`
}

// Store persists cache entries by string key.
type Store interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix. An empty prefix
	// removes everything.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache wraps a Store with staleness and request de-duplication.
type Cache struct {
	store Store
	stale time.Duration
	now   func() time.Time
	log   logging.Logger
	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime sets how long values are considered fresh. Zero disables
// serving from the cache; every Fetch reloads.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.stale = d }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l logging.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns a Cache over store. A nil store means an in-memory one.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store: store,
		stale: DefaultStaleTime,
		now:   time.Now,
		log:   logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch returns the fresh cached value at key or loads it with fn and stores
// the result. Loader errors are returned as is and nothing is stored. Store
// failures are logged and do not fail the read.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	k := key.String()

	if v, ok := lookup[T](ctx, c, k); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(k, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		if err := put(ctx, c, k, v); err != nil {
			c.log.Warn(ctx, "cache write failed", "key", k, "error", err)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Set stores v at key, replacing whatever was there.
func Set[T any](ctx context.Context, c *Cache, key Key, v T) error {
	return put(ctx, c, key.String(), v)
}

// Peek returns the cached value at key regardless of its age.
func Peek[T any](ctx context.Context, c *Cache, key Key) (T, bool) {
	var zero T
	e, err := c.store.Get(ctx, key.String())
	if err != nil || e == nil {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Remove drops the value at key.
func (c *Cache) Remove(ctx context.Context, key Key) error {
	if err := c.store.Delete(ctx, key.String()); err != nil {
		return fmt.Errorf("cache remove %s: %w", key, err)
	}
	return nil
}

// InvalidatePrefix drops key and every key nested under it. Matching is by
// whole segments, so ["documents","list"] does not match "documents:listing".
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix Key) error {
	k := prefix.String()
	if err := c.store.Delete(ctx, k); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", k, err)
	}
	if err := c.store.DeletePrefix(ctx, k+sep); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", k, err)
	}
	return nil
}

// Reset drops every cached value.
func (c *Cache) Reset(ctx context.Context) error {
	if err := c.store.DeletePrefix(ctx, ""); err != nil {
		return fmt.Errorf("cache reset: %w", err)
	}
	return nil
}

func lookup[T any](ctx context.Context, c *Cache, k string) (T, bool) {
	var zero T
	if c.stale <= 0 {
		return zero, false
	}
	e, err := c.store.Get(ctx, k)
	if err != nil {
		c.log.Warn(ctx, "cache read failed", "key", k, "error", err)
		return zero, false
	}
	if e == nil || c.now().Sub(e.StoredAt) >= c.stale {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		c.log.Warn(ctx, "cache entry undecodable", "key", k, "error", err)
		return zero, false
	}
	return v, true
}

func put[T any](ctx context.Context, c *Cache, k string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", k, err)
	}
	if err := c.store.Set(ctx, k, Entry{Data: data, StoredAt: c.now()}); err != nil {
		return fmt.Errorf("cache set %s: %w", k, err)
	}
	return nil
}
