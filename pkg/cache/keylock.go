package cache

import "sync"

// keyLocks hands out one mutex per key in use. Entries are reference counted
// and dropped when the last holder unlocks.
type keyLocks[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks[K comparable]() *keyLocks[K] {
	return &keyLocks[K]{locks: make(map[K]*keyLock)}
}

// Lock blocks until key is held and returns the matching unlock func.
func (k *keyLocks[K]) Lock(key K) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks[K]) active() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
