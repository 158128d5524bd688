package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashpect/tiercache/pkg/utils"
)

var _ Cache[string, any] = (*Tiered[string, any])(nil)

// Tiered is an LRU cache with per-entry TTL whose capacity evictions spill
// to an Overflow tier and are rehydrated on the next read.
//
// mu guards the table, the expiry index and pending. No I/O happens under mu.
// Every public operation on a key also holds that key's lock from keys, which
// orders same-key overflow I/O. A goroutine never holds two key locks.
type Tiered[K ~string, V any] struct {
	mu      sync.Mutex
	table   *lruTable[K, V]
	expiry  *expiryIndex[K]
	pending map[K]*Entry[K, V] // evicted, live, not yet stored in overflow
	stale   map[K]struct{}     // resident keys whose overflow blob could not be deleted
	closed  bool

	keys       *keyLocks[K]
	overflow   Overflow[K, V]
	persistent bool
	onEvict    EvictionHook[K, V]
	now        func() time.Time
	stats      counters

	defaultTTL      time.Duration
	overflowTimeout time.Duration
	sweepInterval   time.Duration
	sweepDelay      time.Duration
	startCleanup    bool

	ctx    context.Context
	cancel context.CancelFunc

	daemonMu     sync.Mutex
	daemonCancel context.CancelFunc
	daemonWG     sync.WaitGroup
}

// New creates a Tiered cache holding at most capacity entries in memory.
// Capacity must be > 0.
func New[K ~string, V any](capacity int, opts ...Option[K, V]) (*Tiered[K, V], error) {
	table, err := newLRUTable[K, V](capacity)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Tiered[K, V]{
		table:           table,
		expiry:          newExpiryIndex[K](capacity),
		pending:         make(map[K]*Entry[K, V]),
		stale:           make(map[K]struct{}),
		keys:            newKeyLocks[K](),
		overflow:        discard[K, V]{},
		now:             time.Now,
		defaultTTL:      DefaultTTL,
		overflowTimeout: defaultOverflowTimeout,
		sweepInterval:   defaultSweepInterval,
		sweepDelay:      defaultSweepDelay,
		ctx:             ctx,
		cancel:          cancel,
	}

	for _, o := range opts {
		o(c)
	}
	if _, isDiscard := c.overflow.(discard[K, V]); !isDiscard {
		c.persistent = true
	}

	if c.startCleanup {
		c.StartCleanupDaemon()
	}
	return c, nil
}

// Set stores value under key with the cache's default TTL.
func (c *Tiered[K, V]) Set(key K, value V) error {
	e, err := newEntry(key, value, c.defaultTTL, c.now())
	if err != nil {
		return err
	}
	return c.set(e)
}

// SetWithTTL stores value under key, expiring after ttl.
func (c *Tiered[K, V]) SetWithTTL(key K, value V, ttl time.Duration) error {
	e, err := NewEntryWithTTL(key, value, ttl, c.now())
	if err != nil {
		return err
	}
	return c.set(e)
}

func (c *Tiered[K, V]) set(e *Entry[K, V]) error {
	unlock := c.keys.Lock(e.key)
	ev, err := c.admit(e)
	unlock()
	if err != nil {
		return err
	}
	c.spill(ev)
	return nil
}

// eviction is a capacity eviction still owed its spill and hook call.
// parked is set when the entry went into pending for a spill.
type eviction[K ~string, V any] struct {
	entry  *Entry[K, V]
	parked bool
}

// admit inserts a fresh entry. Caller holds the key lock.
func (c *Tiered[K, V]) admit(e *Entry[K, V]) (*eviction[K, V], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.table.Contains(e.key) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, string(e.key))
	}
	_, wasPending := c.pending[e.key]
	delete(c.pending, e.key)
	c.mu.Unlock()

	// An older copy may sit on disk; it must go before the new one becomes resident.
	var delErr error
	if !wasPending && c.persistent {
		_, delErr = c.deleteOverflow(e.key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ev, err := c.insertLocked(e, c.now())
	if err == nil && delErr != nil {
		c.stale[e.key] = struct{}{}
	}
	return ev, err
}

// insertLocked registers e in both memory indices. A capacity eviction is
// unregistered in the same critical section; if it is still live it is parked
// in pending. The eviction is returned so the caller can spill it after
// dropping its key lock.
func (c *Tiered[K, V]) insertLocked(e *Entry[K, V], now time.Time) (*eviction[K, V], error) {
	if c.table.Contains(e.key) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, string(e.key))
	}
	evicted, err := c.table.Put(e.key, e)
	if err != nil {
		return nil, err
	}
	c.expiry.Register(e.key, e.expiresAt)

	if evicted == nil {
		return nil, nil
	}
	c.expiry.Remove(evicted.key)
	c.stats.evictions.Add(1)
	// a spill overwrites any leftover blob; an expired one can never load
	delete(c.stale, evicted.key)
	ev := &eviction[K, V]{entry: evicted}
	if evicted.ExpiredAt(now) {
		c.stats.expirations.Add(1)
	} else if c.persistent {
		c.pending[evicted.key] = evicted
		ev.parked = true
	}
	return ev, nil
}

// spill writes a parked eviction to the overflow tier, then calls the
// eviction hook with no key lock held.
func (c *Tiered[K, V]) spill(ev *eviction[K, V]) {
	if ev == nil {
		return
	}
	if !ev.parked {
		c.notifyEvicted(ev.entry, false)
		return
	}
	if spilled, settled := c.store(ev.entry); settled {
		c.notifyEvicted(ev.entry, spilled)
	}
}

// store runs under e's key lock. settled is false when e left pending
// meanwhile: it was rehydrated by Get or superseded by Set or Delete, so
// it was neither spilled nor lost.
func (c *Tiered[K, V]) store(e *Entry[K, V]) (spilled, settled bool) {
	unlock := c.keys.Lock(e.key)
	defer unlock()

	c.mu.Lock()
	if c.pending[e.key] != e {
		c.mu.Unlock()
		return false, false
	}
	if e.ExpiredAt(c.now()) {
		delete(c.pending, e.key)
		c.mu.Unlock()
		c.stats.expirations.Add(1)
		return false, true
	}
	c.mu.Unlock()

	ctx, cancel := c.overflowContext()
	err := c.overflow.Store(ctx, e.key, e)
	cancel()

	c.mu.Lock()
	if c.pending[e.key] == e {
		delete(c.pending, e.key)
	}
	c.mu.Unlock()

	if err != nil {
		c.stats.spillFailures.Add(1)
		utils.Warn("overflow store of key %q failed, entry lost: %v", string(e.key), err)
		return false, true
	}
	c.stats.spills.Add(1)
	utils.Debug("spilled key %q to overflow", string(e.key))
	return true, true
}

func (c *Tiered[K, V]) notifyEvicted(e *Entry[K, V], spilled bool) {
	if c.onEvict != nil {
		c.onEvict(e, spilled)
	}
}

// Get returns the payload for key. Expired entries are discarded on access.
// A miss in memory falls through to the overflow tier and rehydrates.
func (c *Tiered[K, V]) Get(key K) (V, bool) {
	unlock := c.keys.Lock(key)
	e, ev := c.get(key)
	unlock()
	c.spill(ev)

	if e == nil {
		c.stats.misses.Add(1)
		var zero V
		return zero, false
	}
	c.stats.hits.Add(1)
	return e.payload, true
}

func (c *Tiered[K, V]) get(key K) (hit *Entry[K, V], ev *eviction[K, V]) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.table.Get(key); ok {
		if e.ExpiredAt(now) {
			c.table.Remove(key)
			c.expiry.Remove(key)
			delete(c.stale, key)
			c.mu.Unlock()
			c.stats.expirations.Add(1)
			utils.Debug("key %q expired on access", string(key))
			return nil, nil
		}
		c.mu.Unlock()
		return e, nil
	}
	if e, ok := c.pending[key]; ok {
		// Evicted but not yet stored: take it back without touching the overflow tier.
		delete(c.pending, key)
		if e.ExpiredAt(now) {
			c.mu.Unlock()
			c.stats.expirations.Add(1)
			return nil, nil
		}
		// key lock held, so this cannot be a duplicate
		ev, _ = c.insertLocked(e, now)
		c.mu.Unlock()
		c.stats.rehydrations.Add(1)
		return e, ev
	}
	closed := c.closed
	c.mu.Unlock()

	if !c.persistent || closed {
		return nil, nil
	}

	e := c.loadOverflow(key)
	if e == nil {
		return nil, nil
	}
	// Expired or about to be resident, the blob is stale either way.
	_, delErr := c.deleteOverflow(key)
	if e.ExpiredAt(now) {
		c.stats.expirations.Add(1)
		utils.Debug("overflow copy of key %q expired, discarded", string(key))
		return nil, nil
	}

	c.mu.Lock()
	ev, _ = c.insertLocked(e, now)
	if delErr != nil {
		c.stale[key] = struct{}{}
	}
	c.mu.Unlock()
	c.stats.rehydrations.Add(1)
	utils.Debug("rehydrated key %q from overflow", string(key))
	return e, ev
}

// Delete removes key from memory or the overflow tier.
func (c *Tiered[K, V]) Delete(key K) bool {
	unlock := c.keys.Lock(key)
	defer unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if _, ok := c.table.Remove(key); ok {
		c.expiry.Remove(key)
		_, stale := c.stale[key]
		delete(c.stale, key)
		c.mu.Unlock()
		if stale {
			// a blob that survived rehydration would bring the key back
			c.deleteOverflow(key)
		}
		return true
	}
	if _, ok := c.pending[key]; ok {
		delete(c.pending, key)
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	if !c.persistent {
		return false
	}
	existed, _ := c.deleteOverflow(key)
	return existed
}

// Sweep removes the expired prefix of the expiry index from memory, then lets
// the overflow tier purge its own expired blobs if it can.
func (c *Tiered[K, V]) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for {
		_, expiresAt, ok := c.expiry.PeekEarliest()
		if !ok || !now.After(expiresAt) {
			break
		}
		key, _ := c.expiry.PopEarliest()
		c.table.Remove(key)
		delete(c.stale, key)
		removed++
	}
	closed := c.closed
	c.mu.Unlock()
	c.stats.expirations.Add(uint64(removed))

	if p, ok := c.overflow.(Purger); ok && !closed {
		ctx, cancel := c.overflowContext()
		n, err := p.PurgeExpired(ctx, now)
		cancel()
		if err != nil {
			utils.Warn("overflow purge failed: %v", err)
		}
		c.stats.expirations.Add(uint64(n))
	}
	return removed
}

func (c *Tiered[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Contains(key)
}

func (c *Tiered[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Len()
}

func (c *Tiered[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Keys()
}

func (c *Tiered[K, V]) Stats() Stats {
	return c.stats.snapshot()
}

// Close stops the cleanup daemon and cancels in-flight overflow calls.
// Get keeps serving memory-resident entries after Close.
func (c *Tiered[K, V]) Close() {
	c.StopCleanupDaemon()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *Tiered[K, V]) overflowContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.overflowTimeout)
}

func (c *Tiered[K, V]) loadOverflow(key K) *Entry[K, V] {
	ctx, cancel := c.overflowContext()
	defer cancel()
	e, err := c.overflow.Load(ctx, key)
	if err != nil {
		utils.Warn("overflow load of key %q failed, treating as miss: %v", string(key), err)
		return nil
	}
	if e != nil && e.key != key {
		utils.Warn("overflow returned key %q for %q, treating as miss", string(e.key), string(key))
		return nil
	}
	return e
}

func (c *Tiered[K, V]) deleteOverflow(key K) (bool, error) {
	ctx, cancel := c.overflowContext()
	defer cancel()
	existed, err := c.overflow.Delete(ctx, key)
	if err != nil {
		utils.Warn("overflow delete of key %q failed, stale blob left behind: %v", string(key), err)
	}
	return existed, err
}

// verify checks the cross-index invariants. Callers must not hold mu.
func (c *Tiered[K, V]) verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.table.verify(); err != nil {
		return err
	}
	if c.expiry.Len() != c.table.Len() {
		return fmt.Errorf("expiry index tracks %d keys, table holds %d", c.expiry.Len(), c.table.Len())
	}
	for _, k := range c.table.Keys() {
		if !c.expiry.Contains(k) {
			return fmt.Errorf("key %q resident without expiry record", string(k))
		}
		if _, ok := c.pending[k]; ok {
			return fmt.Errorf("key %q both resident and pending spill", string(k))
		}
	}
	for k := range c.stale {
		if !c.table.Contains(k) {
			return fmt.Errorf("key %q marked stale but not resident", string(k))
		}
	}
	return nil
}
