package cache

// Handle addresses a node in an orderedList. The generation guards against a
// handle outliving its node: once a slot is freed and reused, old handles no
// longer match.
type Handle struct {
	index      int
	generation uint32
}

const nilIndex = -1

type listNode[T any] struct {
	value      T
	prev, next int
	generation uint32
	live       bool
}

// orderedList is a doubly linked list stored in a slice arena.
// Front is the oldest node, back the newest.
type orderedList[T any] struct {
	nodes []listNode[T]
	free  []int
	head  int
	tail  int
	len   int
}

func newOrderedList[T any](capacityHint int) *orderedList[T] {
	return &orderedList[T]{
		nodes: make([]listNode[T], 0, capacityHint),
		head:  nilIndex,
		tail:  nilIndex,
	}
}

func (l *orderedList[T]) Len() int { return l.len }

// PushBack appends v and returns its handle.
func (l *orderedList[T]) PushBack(v T) Handle {
	idx := l.alloc(v)
	l.linkBack(idx)
	l.len++
	return Handle{index: idx, generation: l.nodes[idx].generation}
}

// Remove unlinks the node behind h. Stale handles are ignored.
func (l *orderedList[T]) Remove(h Handle) (T, bool) {
	if !l.valid(h) {
		var zero T
		return zero, false
	}
	return l.release(h.index), true
}

// PopFront removes and returns the oldest value.
func (l *orderedList[T]) PopFront() (T, bool) {
	if l.head == nilIndex {
		var zero T
		return zero, false
	}
	return l.release(l.head), true
}

// PopBack removes and returns the newest value.
func (l *orderedList[T]) PopBack() (T, bool) {
	if l.tail == nilIndex {
		var zero T
		return zero, false
	}
	return l.release(l.tail), true
}

// MoveToBack marks the node behind h as the newest.
func (l *orderedList[T]) MoveToBack(h Handle) bool {
	if !l.valid(h) {
		return false
	}
	if h.index == l.tail {
		return true
	}
	l.unlink(h.index)
	l.linkBack(h.index)
	return true
}

func (l *orderedList[T]) Front() (T, bool) { return l.at(l.head) }
func (l *orderedList[T]) Back() (T, bool)  { return l.at(l.tail) }

// Value returns the value behind h without moving it.
func (l *orderedList[T]) Value(h Handle) (T, bool) {
	if !l.valid(h) {
		var zero T
		return zero, false
	}
	return l.nodes[h.index].value, true
}

// Values returns all values front to back.
func (l *orderedList[T]) Values() []T {
	out := make([]T, 0, l.len)
	for i := l.head; i != nilIndex; i = l.nodes[i].next {
		out = append(out, l.nodes[i].value)
	}
	return out
}

func (l *orderedList[T]) at(idx int) (T, bool) {
	if idx == nilIndex {
		var zero T
		return zero, false
	}
	return l.nodes[idx].value, true
}

func (l *orderedList[T]) valid(h Handle) bool {
	if h.index < 0 || h.index >= len(l.nodes) {
		return false
	}
	n := &l.nodes[h.index]
	return n.live && n.generation == h.generation
}

func (l *orderedList[T]) alloc(v T) int {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		node := &l.nodes[idx]
		node.value = v
		node.live = true
		return idx
	}
	l.nodes = append(l.nodes, listNode[T]{value: v, prev: nilIndex, next: nilIndex, live: true})
	return len(l.nodes) - 1
}

func (l *orderedList[T]) release(idx int) T {
	l.unlink(idx)
	node := &l.nodes[idx]
	v := node.value
	var zero T
	node.value = zero
	node.live = false
	node.generation++
	l.free = append(l.free, idx)
	l.len--
	return v
}

func (l *orderedList[T]) linkBack(idx int) {
	node := &l.nodes[idx]
	node.prev = l.tail
	node.next = nilIndex
	if l.tail != nilIndex {
		l.nodes[l.tail].next = idx
	} else {
		l.head = idx
	}
	l.tail = idx
}

func (l *orderedList[T]) unlink(idx int) {
	node := &l.nodes[idx]
	if node.prev != nilIndex {
		l.nodes[node.prev].next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nilIndex {
		l.nodes[node.next].prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nilIndex
	node.next = nilIndex
}
