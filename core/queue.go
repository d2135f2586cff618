package core

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// pendingList is the ordered sequence of envelopes waiting to start.
// Back insertion keeps FIFO order; front insertion places an item ahead
// of everything already pending.
//
// pendingList is not safe for concurrent use. The owning Queue guards it
// with its state mutex.
type pendingList[E any] struct {
	items []E
}

func newPendingList[E any]() *pendingList[E] {
	return &pendingList[E]{
		items: make([]E, 0, defaultQueueCap),
	}
}

// PushBack appends an item at the tail.
func (l *pendingList[E]) PushBack(item E) {
	l.items = append(l.items, item)
}

// PushFront inserts an item at the head.
func (l *pendingList[E]) PushFront(item E) {
	var zero E
	l.items = append(l.items, zero)
	copy(l.items[1:], l.items[:len(l.items)-1])
	l.items[0] = item
}

// PopFront removes and returns the head item.
func (l *pendingList[E]) PopFront() (E, bool) {
	var zero E
	if len(l.items) == 0 {
		return zero, false
	}

	item := l.items[0]
	// Zero out the element in the underlying array to prevent memory leak
	l.items[0] = zero
	l.items = l.items[1:]
	l.maybeCompact()

	return item, true
}

// Len returns the number of pending items.
func (l *pendingList[E]) Len() int {
	return len(l.items)
}

// IsEmpty reports whether nothing is pending.
func (l *pendingList[E]) IsEmpty() bool {
	return len(l.items) == 0
}

// Clear drops every pending item and returns how many were removed.
func (l *pendingList[E]) Clear() int {
	n := len(l.items)
	// Create a new slice to release all envelope references
	l.items = make([]E, 0, defaultQueueCap)
	return n
}

func (l *pendingList[E]) maybeCompact() {
	n := len(l.items)
	c := cap(l.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		l.items = make([]E, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]E, n, newCap)
	copy(newSlice, l.items)
	l.items = newSlice
}
