package engine

// RingBuffer is a fixed-capacity circular buffer that overwrites its oldest
// entry when full. It is not safe for concurrent use; the Poller guards it.
type RingBuffer[T any] struct {
	items []T
	head  int
	count int
}

// NewRingBuffer creates a RingBuffer holding at most capacity items.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, dropping the oldest if the buffer is full.
func (r *RingBuffer[T]) Add(item T) {
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

// AddAll appends items in order.
func (r *RingBuffer[T]) AddAll(items []T) {
	for _, it := range items {
		r.Add(it)
	}
}

// Len returns the number of stored items.
func (r *RingBuffer[T]) Len() int {
	return r.count
}

// All returns the stored items from oldest to newest.
func (r *RingBuffer[T]) All() []T {
	out := make([]T, r.count)
	start := (r.head - r.count + len(r.items)) % len(r.items)
	for i := range out {
		out[i] = r.items[(start+i)%len(r.items)]
	}
	return out
}

// Clear drops every item.
func (r *RingBuffer[T]) Clear() {
	clear(r.items)
	r.head, r.count = 0, 0
}
