package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache[V any](t *testing.T, clock *fakeClock, opts ...Option) *Cache[V] {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithSweepInterval(0)}, opts...)
	c := New[V](opts...)
	t.Cleanup(c.Close)
	return c
}

func TestCache_GetSet(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[string](t, clock)

	t.Run("missing key", func(t *testing.T) {
		_, ok := c.Get("nope")
		assert.False(t, ok)
	})

	t.Run("visible until expiry", func(t *testing.T) {
		c.Set("isbn", "value", time.Minute)

		v, ok := c.Get("isbn")
		require.True(t, ok)
		assert.Equal(t, "value", v)

		clock.Advance(time.Minute - time.Nanosecond)
		_, ok = c.Get("isbn")
		assert.True(t, ok)

		clock.Advance(time.Nanosecond)
		_, ok = c.Get("isbn")
		assert.False(t, ok, "entry must be absent once now >= expiresAt")
		assert.Equal(t, 0, c.Len(), "expired entry is purged on lookup")
	})

	t.Run("overwrite resets expiry", func(t *testing.T) {
		c.Set("k", "v1", time.Minute)
		clock.Advance(50 * time.Second)
		c.Set("k", "v2", time.Minute)
		clock.Advance(50 * time.Second)

		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v2", v)
	})

	t.Run("non-positive ttl uses default", func(t *testing.T) {
		c.Set("default", "v", 0)
		clock.Advance(DefaultTTL - time.Second)
		_, ok := c.Get("default")
		assert.True(t, ok)
		clock.Advance(time.Second)
		_, ok = c.Get("default")
		assert.False(t, ok)
	})
}

func TestCache_DeleteExpired(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache[int](t, clock)

	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, c.DeleteExpired())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Expirations)
}

func TestCache_MaxEntries(t *testing.T) {
	clock := newFakeClock()

	t.Run("evicts least recently used", func(t *testing.T) {
		c := newTestCache[int](t, clock, WithMaxEntries(2))
		c.Set("a", 1, time.Hour)
		c.Set("b", 2, time.Hour)

		_, _ = c.Get("a")
		c.Set("c", 3, time.Hour)

		_, ok := c.Get("b")
		assert.False(t, ok, "b was least recently used")
		_, ok = c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
		assert.Equal(t, uint64(1), c.Stats().Evictions)
	})

	t.Run("prefers purging expired entries", func(t *testing.T) {
		c := newTestCache[int](t, clock, WithMaxEntries(2))
		c.Set("fresh", 1, time.Hour)
		c.Set("stale", 2, time.Second)
		_, _ = c.Get("stale")
		clock.Advance(2 * time.Second)

		c.Set("new", 3, time.Hour)

		assert.Equal(t, 2, c.Len())
		_, ok := c.Get("fresh")
		assert.True(t, ok)
		assert.Equal(t, uint64(0), c.Stats().Evictions)
	})
}

func TestCache_Sweeper(t *testing.T) {
	c := New[int](WithSweepInterval(10 * time.Millisecond))
	defer c.Close()

	c.Set("k", 1, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[int]()
	c.Close()
	c.Close()
}

func TestCache_GetOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("hit does not fetch", func(t *testing.T) {
		c := newTestCache[string](t, newFakeClock())
		c.Set("k", "cached", time.Minute)

		v, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (string, error) {
			t.Fatal("fetch must not be called on a hit")
			return "", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "cached", v)
	})

	t.Run("miss fetches and stores", func(t *testing.T) {
		clock := newFakeClock()
		c := newTestCache[string](t, clock)

		v, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (string, error) {
			return "fresh", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fresh", v)

		cached, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "fresh", cached)

		clock.Advance(time.Minute)
		_, ok = c.Get("k")
		assert.False(t, ok)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := newTestCache[string](t, newFakeClock())
		boom := errors.New("boom")
		var calls int

		fetch := func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", boom
			}
			return "ok", nil
		}

		_, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.Len())

		v, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 2, calls)
	})
}

func TestCache_GetOrFetch_Coalesces(t *testing.T) {
	const callers = 50

	run := func(t *testing.T, result string, fetchErr error) ([]string, []error, int32) {
		c := newTestCache[string](t, newFakeClock())
		var calls atomic.Int32
		release := make(chan struct{})
		started := make(chan struct{}, callers)

		fetch := func(context.Context) (string, error) {
			calls.Add(1)
			<-release
			return result, fetchErr
		}

		values := make([]string, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				started <- struct{}{}
				values[i], errs[i] = c.GetOrFetch(context.Background(), "USD_EUR", time.Minute, fetch)
			}()
		}
		for range callers {
			<-started
		}
		// Give the goroutines time to join the flight before it completes.
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		return values, errs, calls.Load()
	}

	t.Run("shared value", func(t *testing.T) {
		values, errs, calls := run(t, "0.92", nil)
		assert.Equal(t, int32(1), calls)
		for i := range callers {
			assert.NoError(t, errs[i])
			assert.Equal(t, "0.92", values[i])
		}
	})

	t.Run("shared error", func(t *testing.T) {
		boom := errors.New("upstream down")
		_, errs, calls := run(t, "", boom)
		assert.Equal(t, int32(1), calls)
		for i := range callers {
			assert.ErrorIs(t, errs[i], boom)
		}
	})
}

func TestCache_GetOrFetch_CallerCancellation(t *testing.T) {
	c := newTestCache[int](t, newFakeClock())
	release := make(chan struct{})
	var fetchCtxErr atomic.Value

	fetch := func(ctx context.Context) (int, error) {
		<-release
		fetchCtxErr.Store(fmt.Sprint(ctx.Err()))
		return 42, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		errc <- err
	}()

	waiter := make(chan int, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		v, _ := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
		waiter <- v
	}()

	time.Sleep(40 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	assert.Equal(t, 42, <-waiter, "other waiters still get the shared result")
	assert.Equal(t, "<nil>", fetchCtxErr.Load(), "fetch context is detached from caller cancellation")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCache_GetOrFetch_PanicBecomesError(t *testing.T) {
	c := newTestCache[int](t, newFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (int, error) {
				time.Sleep(20 * time.Millisecond)
				panic("boom")
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetchPanicked)
		assert.Contains(t, err.Error(), "boom")
	}
	_, ok := c.Get("k")
	assert.False(t, ok)

	v, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, c.Len())
}
