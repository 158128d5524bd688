package cache

import (
	"errors"
	"fmt"
)

// lruTable is a fixed-capacity LRU index. The key map and the ordered list are
// only ever mutated together, inside this type.
// Front of the list = least recently used, back = most recently used.
type lruTable[K ~string, V any] struct {
	capacity int
	items    map[K]Handle
	order    *orderedList[*Entry[K, V]]
}

func newLRUTable[K ~string, V any](capacity int) (*lruTable[K, V], error) {
	if capacity <= 0 {
		return nil, errors.New("capacity must be > 0")
	}
	return &lruTable[K, V]{
		capacity: capacity,
		items:    make(map[K]Handle, capacity),
		order:    newOrderedList[*Entry[K, V]](capacity),
	}, nil
}

func (t *lruTable[K, V]) Len() int      { return len(t.items) }
func (t *lruTable[K, V]) Capacity() int { return t.capacity }

func (t *lruTable[K, V]) Contains(key K) bool {
	_, ok := t.items[key]
	return ok
}

// Get returns the entry for key and marks it most recently used.
func (t *lruTable[K, V]) Get(key K) (*Entry[K, V], bool) {
	h, ok := t.items[key]
	if !ok {
		return nil, false
	}
	t.order.MoveToBack(h)
	return t.order.Value(h)
}

// Peek returns the entry for key without touching its position.
func (t *lruTable[K, V]) Peek(key K) (*Entry[K, V], bool) {
	h, ok := t.items[key]
	if !ok {
		return nil, false
	}
	return t.order.Value(h)
}

// Put inserts e under key. When the table is full the least recently used
// entry is removed first and returned.
func (t *lruTable[K, V]) Put(key K, e *Entry[K, V]) (*Entry[K, V], error) {
	if _, ok := t.items[key]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, string(key))
	}

	var evicted *Entry[K, V]
	if len(t.items) >= t.capacity {
		oldest, ok := t.order.PopFront()
		if ok {
			delete(t.items, oldest.key)
			evicted = oldest
		}
	}

	t.items[key] = t.order.PushBack(e)
	return evicted, nil
}

// Remove deletes key from both the map and the list.
func (t *lruTable[K, V]) Remove(key K) (*Entry[K, V], bool) {
	h, ok := t.items[key]
	if !ok {
		return nil, false
	}
	delete(t.items, key)
	return t.order.Remove(h)
}

// Keys returns resident keys from least to most recently used.
func (t *lruTable[K, V]) Keys() []K {
	entries := t.order.Values()
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}

// verify checks that the map and list describe exactly the same key set.
func (t *lruTable[K, V]) verify() error {
	if len(t.items) > t.capacity {
		return fmt.Errorf("size %d exceeds capacity %d", len(t.items), t.capacity)
	}
	if len(t.items) != t.order.Len() {
		return fmt.Errorf("map holds %d keys, list holds %d nodes", len(t.items), t.order.Len())
	}
	seen := make(map[K]struct{}, len(t.items))
	for _, e := range t.order.Values() {
		if _, dup := seen[e.key]; dup {
			return fmt.Errorf("key %q linked twice", string(e.key))
		}
		seen[e.key] = struct{}{}
		h, ok := t.items[e.key]
		if !ok {
			return fmt.Errorf("node %q has no map entry", string(e.key))
		}
		v, ok := t.order.Value(h)
		if !ok || v != e {
			return fmt.Errorf("map handle for %q does not point at its node", string(e.key))
		}
	}
	return nil
}
