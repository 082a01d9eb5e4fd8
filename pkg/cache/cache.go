// Package cache provides a small in-memory TTL cache with
// stale-while-revalidate semantics and singleflight load deduplication.
// The feed uses it to keep one warm copy of the creator directory listing
// shared across all sessions.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options configures cache entry lifetimes.
type Options struct {
	TTL                  time.Duration
	StaleWhileRevalidate time.Duration
	NegativeTTL          time.Duration
}

// MetricsHooks lets callers observe cache behavior without coupling the
// cache to a metrics backend.
type MetricsHooks struct {
	OnHit   func(key string)
	OnMiss  func(key string)
	OnStale func(key string)
	OnStore func(key string)
}

type entry struct {
	value     interface{}
	err       error
	expiresAt time.Time
	staleAt   time.Time
	negative  bool
}

// Cache is a keyed loading cache. All methods are safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*entry
	opts    Options
	metrics MetricsHooks
	sf      singleflight.Group
}

func New(opts Options, hooks MetricsHooks) *Cache {
	return &Cache{
		items:   make(map[string]*entry),
		opts:    opts,
		metrics: hooks,
	}
}

// Loader fetches the value for a key on miss. ok=false stores a negative
// entry (if NegativeTTL is configured) instead of a value.
type Loader func(ctx context.Context, key string) (interface{}, bool, error)

type loadResult struct {
	val interface{}
	ok  bool
	err error
}

// Get returns the cached value for key, loading it on miss. Within the
// stale window the previous value is returned immediately and a single
// background refresh is triggered.
func (c *Cache) Get(ctx context.Context, key string, loader Loader) (interface{}, bool, error) {
	now := time.Now()
	c.mu.RLock()
	if e, ok := c.items[key]; ok {
		if now.Before(e.expiresAt) {
			c.mu.RUnlock()
			if c.metrics.OnHit != nil {
				c.metrics.OnHit(key)
			}
			if e.negative {
				return nil, false, e.err
			}
			return e.value, true, nil
		}
		if now.Before(e.staleAt) {
			val, wasNegative, negErr := e.value, e.negative, e.err
			c.mu.RUnlock()
			if c.metrics.OnStale != nil {
				c.metrics.OnStale(key)
			}
			go func() {
				_, _, _ = c.sf.Do("refresh:"+key, func() (interface{}, error) {
					v, ok, err := loader(context.WithoutCancel(ctx), key)
					c.store(key, v, ok, err)
					return nil, nil
				})
			}()
			if wasNegative {
				return nil, false, negErr
			}
			return val, true, nil
		}
		// Hard expired: drop and load synchronously
		c.mu.RUnlock()
		c.Delete(key)
	} else {
		c.mu.RUnlock()
	}

	if c.metrics.OnMiss != nil {
		c.metrics.OnMiss(key)
	}
	result, _, _ := c.sf.Do(key, func() (interface{}, error) {
		val, ok, err := loader(ctx, key)
		c.store(key, val, ok, err)
		return loadResult{val: val, ok: ok, err: err}, nil
	})
	res := result.(loadResult)
	if !res.ok {
		return nil, false, res.err
	}
	return res.val, true, nil
}

func (c *Cache) store(key string, val interface{}, ok bool, err error) {
	now := time.Now()
	e := &entry{}
	if ok {
		e.value = val
		e.expiresAt = now.Add(c.opts.TTL)
		e.staleAt = e.expiresAt.Add(c.opts.StaleWhileRevalidate)
	} else {
		if c.opts.NegativeTTL <= 0 {
			// Do not store negatives
			return
		}
		e.err = err
		e.negative = true
		e.expiresAt = now.Add(c.opts.NegativeTTL)
		e.staleAt = e.expiresAt
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	if c.metrics.OnStore != nil {
		c.metrics.OnStore(key)
	}
}

// Peek returns a cached value without triggering a load. Stale entries are
// allowed; negatives are not.
func (c *Cache) Peek(key string) (interface{}, bool) {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || e.negative || now.After(e.staleAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}
