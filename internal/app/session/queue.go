package session

import (
	"sync"
)

// Queue is the bounded delivery buffer between the pollers and the sender.
// Push never blocks: when the queue is full the oldest entry is discarded to
// admit the new one, so a slow consumer can never stall a producer. Pop never
// blocks either and reports emptiness instead, leaving the idle pacing to the
// caller.
//
// Many pollers push concurrently; a single sender pops. All access is
// serialized by one mutex, which keeps FIFO order for each producer intact.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	size     int
	capacity int
	dropped  uint64
}

// NewQueue creates a queue holding at most capacity items. Capacity must be
// positive; config validation rejects anything else before a queue is built.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("session: queue capacity must be positive")
	}
	return &Queue[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest entry when full.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == q.capacity {
		var zero T
		q.items[q.head] = zero
		q.head = (q.head + 1) % q.capacity
		q.size--
		q.dropped++
	}

	q.items[(q.head+q.size)%q.capacity] = v
	q.size++
}

// Pop removes and returns the oldest entry, reporting false when empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.size == 0 {
		return zero, false
	}

	v := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	q.size--
	return v, true
}

// Len returns the number of buffered entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped returns how many entries the drop-oldest policy has evicted.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear discards all buffered entries.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for i := 0; i < q.size; i++ {
		q.items[(q.head+i)%q.capacity] = zero
	}
	q.head = 0
	q.size = 0
}
