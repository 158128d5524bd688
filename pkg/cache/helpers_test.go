package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

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

var errInjected = errors.New("injected overflow failure")

// fakeOverflow records calls and flags overlapping calls on the same key.
type fakeOverflow struct {
	mu       sync.Mutex
	blobs    map[string]*Entry[string, string]
	inflight map[string]int
	overlaps int

	failStore, failLoad, failDelete bool
	stores, loads, deletes, purges  int
}

func newFakeOverflow() *fakeOverflow {
	return &fakeOverflow{
		blobs:    make(map[string]*Entry[string, string]),
		inflight: make(map[string]int),
	}
}

func (f *fakeOverflow) enter(key string) {
	f.mu.Lock()
	f.inflight[key]++
	if f.inflight[key] > 1 {
		f.overlaps++
	}
	f.mu.Unlock()
}

func (f *fakeOverflow) leave(key string) {
	f.mu.Lock()
	f.inflight[key]--
	f.mu.Unlock()
}

func (f *fakeOverflow) Store(_ context.Context, key string, e *Entry[string, string]) error {
	f.enter(key)
	defer f.leave(key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.failStore {
		return errInjected
	}
	f.blobs[key] = e
	return nil
}

func (f *fakeOverflow) Load(_ context.Context, key string) (*Entry[string, string], error) {
	f.enter(key)
	defer f.leave(key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.failLoad {
		return nil, errInjected
	}
	return f.blobs[key], nil
}

func (f *fakeOverflow) Delete(_ context.Context, key string) (bool, error) {
	f.enter(key)
	defer f.leave(key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failDelete {
		return false, errInjected
	}
	_, ok := f.blobs[key]
	delete(f.blobs, key)
	return ok, nil
}

func (f *fakeOverflow) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	n := 0
	for k, e := range f.blobs {
		if e.ExpiredAt(now) {
			delete(f.blobs, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeOverflow) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok
}

func (f *fakeOverflow) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

func newTestCache(t *testing.T, capacity int, clock *fakeClock, store *fakeOverflow, opts ...Option[string, string]) *Tiered[string, string] {
	t.Helper()
	all := []Option[string, string]{WithClock[string, string](clock.Now)}
	if store != nil {
		all = append(all, WithOverflow[string, string](store))
	}
	all = append(all, opts...)
	c, err := New[string, string](capacity, all...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// requireConsistent checks the memory invariants and that no key lives in both tiers.
func requireConsistent(t *testing.T, c *Tiered[string, string], store *fakeOverflow) {
	t.Helper()
	require.NoError(t, c.verify())
	if store == nil {
		return
	}
	for _, k := range c.Keys() {
		require.Falsef(t, store.has(k), "key %q resident in memory and overflow", k)
	}
}
