// Package cache provides an in-memory TTL cache that collapses concurrent
// loads of the same key into a single upstream call.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL           = 600 * time.Second
	DefaultMaxEntries    = 10000
	DefaultSweepInterval = time.Minute
)

// ErrFetchPanicked wraps a panic raised by a FetchFunc.
var ErrFetchPanicked = errors.New("cache: fetch panicked")

// FetchFunc loads the value for a key on a cache miss.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Fetches     uint64
	Evictions   uint64
	Expirations uint64
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache bounded by entry count. Expired entries are never
// returned; they are purged on lookup, by the background sweeper, or when
// room is needed for a new key. Once the bound is reached the least recently
// used entry is evicted.
//
// A Cache is safe for concurrent use by multiple goroutines.
type Cache[V any] struct {
	mu    sync.Mutex
	items map[string]*list.Element
	lru   *list.List // front is most recently used
	stats Stats

	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	group singleflight.Group

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a cache and starts its sweeper unless the sweep interval is
// zero. Call Close to stop the sweeper.
func New[V any](opts ...Option) *Cache[V] {
	cfg := config{
		ttl:           DefaultTTL,
		maxEntries:    DefaultMaxEntries,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Cache[V]{
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		ttl:        cfg.ttl,
		maxEntries: cfg.maxEntries,
		now:        cfg.now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if cfg.sweepInterval > 0 {
		go c.sweep(cfg.sweepInterval)
	} else {
		close(c.done)
	}
	return c
}

// TTL returns the default time-to-live applied when Set is given ttl <= 0.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.live(key)
	if !ok {
		c.stats.Misses++
		return v, false
	}
	c.stats.Hits++
	c.lru.MoveToFront(c.items[key])
	return v, true
}

// Set stores value under key, replacing any previous entry. A ttl <= 0
// uses the cache default.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value, ttl)
}

// GetOrFetch returns the live value for key, or calls fetch to load it.
//
// Only one fetch per key runs at a time. Callers that miss while a fetch is
// in flight wait for it and receive the same value or error. A successful
// result is stored before any waiter is released; errors are not stored.
//
// fetch runs on a context detached from the caller's cancellation so that
// a caller giving up does not fail everyone else waiting on the same key.
// If ctx ends first, GetOrFetch returns ctx.Err() without waiting further.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		// A flight for this key may have completed between the miss and now.
		if v, ok := c.live(key); ok {
			c.mu.Unlock()
			return v, nil
		}
		c.stats.Fetches++
		c.mu.Unlock()

		v, err := runFetch(fetchCtx, fetch)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	var zero V
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// runFetch converts a panic in fetch into an error. singleflight re-panics
// on a fresh goroutine where no caller can recover it.
func runFetch[V any](ctx context.Context, fetch FetchFunc[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFetchPanicked, r)
		}
	}()
	return fetch(ctx)
}

// Delete removes key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
}

// DeleteExpired purges every expired entry and returns how many were removed.
func (c *Cache[V]) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteExpired()
}

// Len reports the number of stored entries, including expired entries that
// have not been purged yet.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// live reports the value for key if present and unexpired, purging it
// otherwise. c.mu must be held.
func (c *Cache[V]) live(key string) (V, bool) {
	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[V])
	if !c.now().Before(ent.expiresAt) {
		c.remove(el)
		c.stats.Expirations++
		return zero, false
	}
	return ent.value, true
}

// store writes a fresh entry. c.mu must be held.
func (c *Cache[V]) store(key string, value V, ttl time.Duration) {
	ent := &entry[V]{key: key, value: value, expiresAt: c.now().Add(ttl)}

	if el, ok := c.items[key]; ok {
		el.Value = ent
		c.lru.MoveToFront(el)
		return
	}

	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.deleteExpired()
		for len(c.items) >= c.maxEntries {
			oldest := c.lru.Back()
			if oldest == nil {
				break
			}
			c.remove(oldest)
			c.stats.Evictions++
		}
	}

	c.items[key] = c.lru.PushFront(ent)
}

func (c *Cache[V]) deleteExpired() int {
	now := c.now()
	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry[V]).expiresAt) {
			c.remove(el)
			c.stats.Expirations++
			removed++
		}
		el = prev
	}
	return removed
}

func (c *Cache[V]) remove(el *list.Element) {
	c.lru.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

func (c *Cache[V]) sweep(every time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}
