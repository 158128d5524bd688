package cache

import (
	"container/heap"
	"time"
)

type expiryItem[K ~string] struct {
	key       K
	expiresAt time.Time
	seq       uint64
	index     int
}

// expiryHeap implements heap.Interface ordered by expiresAt, then insertion order.
type expiryHeap[K ~string] []*expiryItem[K]

func (h expiryHeap[K]) Len() int { return len(h) }

func (h expiryHeap[K]) Less(i, j int) bool {
	if h[i].expiresAt.Equal(h[j].expiresAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].expiresAt.Before(h[j].expiresAt)
}

func (h expiryHeap[K]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap[K]) Push(x any) {
	item := x.(*expiryItem[K])
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *expiryHeap[K]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// expiryIndex tracks one expiry record per memory-resident key.
type expiryIndex[K ~string] struct {
	heap  expiryHeap[K]
	items map[K]*expiryItem[K]
	seq   uint64
}

func newExpiryIndex[K ~string](capacityHint int) *expiryIndex[K] {
	return &expiryIndex[K]{
		heap:  make(expiryHeap[K], 0, capacityHint),
		items: make(map[K]*expiryItem[K], capacityHint),
	}
}

func (x *expiryIndex[K]) Len() int { return len(x.heap) }

func (x *expiryIndex[K]) Contains(key K) bool {
	_, ok := x.items[key]
	return ok
}

// Register records key's expiry, replacing any earlier record for it.
func (x *expiryIndex[K]) Register(key K, expiresAt time.Time) {
	x.seq++
	if item, ok := x.items[key]; ok {
		item.expiresAt = expiresAt
		item.seq = x.seq
		heap.Fix(&x.heap, item.index)
		return
	}
	item := &expiryItem[K]{key: key, expiresAt: expiresAt, seq: x.seq}
	heap.Push(&x.heap, item)
	x.items[key] = item
}

// PeekEarliest returns the soonest-to-expire key without removing it.
func (x *expiryIndex[K]) PeekEarliest() (K, time.Time, bool) {
	if len(x.heap) == 0 {
		var zero K
		return zero, time.Time{}, false
	}
	item := x.heap[0]
	return item.key, item.expiresAt, true
}

func (x *expiryIndex[K]) PopEarliest() (K, bool) {
	if len(x.heap) == 0 {
		var zero K
		return zero, false
	}
	item := heap.Pop(&x.heap).(*expiryItem[K])
	delete(x.items, item.key)
	return item.key, true
}

func (x *expiryIndex[K]) Remove(key K) bool {
	item, ok := x.items[key]
	if !ok {
		return false
	}
	heap.Remove(&x.heap, item.index)
	delete(x.items, key)
	return true
}
