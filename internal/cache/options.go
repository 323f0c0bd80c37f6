package cache

import "time"

type config struct {
	ttl           time.Duration
	maxEntries    int
	sweepInterval time.Duration
	now           func() time.Time
}

// Option configures a Cache.
type Option func(*config)

// WithTTL sets the default time-to-live. Values <= 0 are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of stored entries. Zero disables the bound.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxEntries = n
		}
	}
}

// WithSweepInterval sets how often expired entries are purged in the
// background. Zero disables the sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
