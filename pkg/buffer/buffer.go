// Package buffer provides a generic, thread-safe ring that keeps the most
// recent items. Writes never block: when the ring is full the oldest item
// is dropped.
package buffer

import (
	"sync"
)

// DropCallback is called with each item evicted by a write
type DropCallback[T any] func(item T)

// Stats counts ring activity
type Stats struct {
	Writes   int64 `json:"writes"`
	Drops    int64 `json:"drops"`
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
}

// Ring is a fixed-capacity circular buffer
type Ring[T any] struct {
	mu     sync.RWMutex
	items  []T
	head   int // next write position
	size   int
	writes int64
	drops  int64
	onDrop DropCallback[T]
}

// NewRing creates a ring holding up to capacity items.
// A capacity below one is raised to one.
func NewRing[T any](capacity int, onDrop DropCallback[T]) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{
		items:  make([]T, capacity),
		onDrop: onDrop,
	}
}

// Write appends item, evicting the oldest item when full
func (r *Ring[T]) Write(item T) {
	r.mu.Lock()

	var (
		dropped    T
		hasDropped bool
	)
	if r.size == len(r.items) {
		dropped = r.items[r.head]
		hasDropped = true
		r.drops++
	} else {
		r.size++
	}
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	r.writes++

	r.mu.Unlock()

	// outside the lock so the callback may read the ring
	if hasDropped && r.onDrop != nil {
		r.onDrop(dropped)
	}
}

// Snapshot returns the buffered items from oldest to newest
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	start := (r.head - r.size + len(r.items)) % len(r.items)
	for i := range out {
		out[i] = r.items[(start+i)%len(r.items)]
	}
	return out
}

// Last returns up to n of the newest items, oldest first
func (r *Ring[T]) Last(n int) []T {
	all := r.Snapshot()
	if n < 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Size returns the number of buffered items
func (r *Ring[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of buffered items
func (r *Ring[T]) Capacity() int {
	return len(r.items)
}

// Clear removes all items
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
}

// Stats returns a copy of the ring counters
func (r *Ring[T]) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Writes:   r.writes,
		Drops:    r.drops,
		Size:     r.size,
		Capacity: len(r.items),
	}
}
