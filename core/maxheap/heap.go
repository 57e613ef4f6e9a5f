// File: core/maxheap/heap.go
// Package maxheap implements an array-backed binary max-heap.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The heap is 0-indexed with the maximum at the root: for every i > 0,
// items[(i-1)/2] >= items[i]. It is not safe for concurrent use.

package maxheap

import (
	"cmp"
	"errors"
)

// ErrEmpty is returned by Pop and Peek on an empty heap.
var ErrEmpty = errors.New("maxheap: empty collection")

// Heap is a max-heap of ordered values.
type Heap[T cmp.Ordered] struct {
	items []T
}

// New returns an empty heap.
func New[T cmp.Ordered]() *Heap[T] {
	return &Heap[T]{}
}

// Build copies items and heapifies the copy in O(n).
func Build[T cmp.Ordered](items []T) *Heap[T] {
	h := &Heap[T]{items: make([]T, len(items))}
	copy(h.items, items)
	h.heapify()
	return h
}

// Clone returns an independent heap holding the same values. The backing
// array is copied and re-heapified, so draining the clone never touches h.
func (h *Heap[T]) Clone() *Heap[T] {
	return Build(h.items)
}

// Len returns the number of values.
func (h *Heap[T]) Len() int { return len(h.items) }

// Empty reports whether the heap holds no values.
func (h *Heap[T]) Empty() bool { return len(h.items) == 0 }

// Push inserts x in O(log n).
func (h *Heap[T]) Push(x T) {
	h.items = append(h.items, x)
	h.siftUp(len(h.items) - 1)
}

// Peek returns the maximum without removing it.
func (h *Heap[T]) Peek() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.items[0], nil
}

// Pop removes and returns the maximum in O(log n).
func (h *Heap[T]) Pop() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	last := len(h.items) - 1
	top := h.items[0]
	h.items[0], h.items[last] = h.items[last], h.items[0]
	var zero T
	h.items[last] = zero
	h.items = h.items[:last]
	h.siftDown(0, last)
	return top, nil
}

// Drain pops every value, returning them largest first. The heap is empty
// afterwards.
func (h *Heap[T]) Drain() []T {
	out := make([]T, 0, len(h.items))
	for len(h.items) > 0 {
		v, _ := h.Pop()
		out = append(out, v)
	}
	return out
}

// Values returns a copy of the backing array in heap order.
func (h *Heap[T]) Values() []T {
	out := make([]T, len(h.items))
	copy(out, h.items)
	return out
}

func (h *Heap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i] <= h.items[parent] {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

// siftDown restores order below i within items[:n].
func (h *Heap[T]) siftDown(i, n int) {
	for {
		largest := i
		left := 2*i + 1
		right := left + 1
		if left < n && h.items[left] > h.items[largest] {
			largest = left
		}
		if right < n && h.items[right] > h.items[largest] {
			largest = right
		}
		if largest == i {
			return
		}
		h.items[i], h.items[largest] = h.items[largest], h.items[i]
		i = largest
	}
}

func (h *Heap[T]) heapify() {
	n := len(h.items)
	for i := n/2 - 1; i >= 0; i-- {
		h.siftDown(i, n)
	}
}
