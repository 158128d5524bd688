package cache

import "time"

const defaultSweepInterval = 1 * time.Second
const defaultSweepDelay = MinTTL
const defaultOverflowTimeout = 5 * time.Second

// Option is a functional option for building a Tiered cache
type Option[K ~string, V any] func(*Tiered[K, V])

// EvictionHook is called after an entry leaves memory for capacity reasons,
// once its spill to the overflow tier has been attempted. spilled is false
// when the entry was dropped instead of stored. An eviction taken back by
// Get, or superseded by Set or Delete before its spill, is not reported.
//
// The hook runs with no cache lock held and may call back into the cache.
type EvictionHook[K ~string, V any] func(e *Entry[K, V], spilled bool)

// WithOverflow sets the tier that receives entries evicted for capacity.
// Without it evicted entries are dropped.
func WithOverflow[K ~string, V any](o Overflow[K, V]) Option[K, V] {
	return func(c *Tiered[K, V]) {
		if o == nil {
			panic("overflow must not be nil")
		}
		c.overflow = o
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock[K ~string, V any](now func() time.Time) Option[K, V] {
	return func(c *Tiered[K, V]) {
		if now == nil {
			panic("clock must not be nil")
		}
		c.now = now
	}
}

// WithDefaultTTL sets the TTL used by Set. It must lie within [MinTTL, MaxTTL].
func WithDefaultTTL[K ~string, V any](ttl time.Duration) Option[K, V] {
	return func(c *Tiered[K, V]) {
		if ttl >= MinTTL && ttl <= MaxTTL {
			c.defaultTTL = ttl
		} else {
			panic("default TTL must be within [MinTTL, MaxTTL]")
		}
	}
}

// WithSweepInterval configures how often the cleanup daemon sweeps. interval must be > 0
func WithSweepInterval[K ~string, V any](interval time.Duration) Option[K, V] {
	return func(c *Tiered[K, V]) {
		if interval > 0 {
			c.sweepInterval = interval
		} else {
			panic("sweep interval must be > 0")
		}
	}
}

// WithSweepDelay configures how long the daemon waits before its first sweep.
func WithSweepDelay[K ~string, V any](delay time.Duration) Option[K, V] {
	return func(c *Tiered[K, V]) {
		if delay >= 0 {
			c.sweepDelay = delay
		} else {
			panic("sweep delay must be >= 0")
		}
	}
}

// WithCleanupStart configures whether to start the cleanup daemon on cache creation.
func WithCleanupStart[K ~string, V any](cleanupRunning bool) Option[K, V] {
	return func(c *Tiered[K, V]) {
		c.startCleanup = cleanupRunning
	}
}

// WithOverflowTimeout bounds every overflow call. A timeout counts as a failed call.
func WithOverflowTimeout[K ~string, V any](timeout time.Duration) Option[K, V] {
	return func(c *Tiered[K, V]) {
		if timeout > 0 {
			c.overflowTimeout = timeout
		} else {
			panic("overflow timeout must be > 0")
		}
	}
}

func WithEvictionHook[K ~string, V any](hook EvictionHook[K, V]) Option[K, V] {
	return func(c *Tiered[K, V]) {
		c.onEvict = hook
	}
}
