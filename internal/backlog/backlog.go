// Package backlog holds the tasks that the pool controller has not yet
// handed to a worker.
//
// A Backlog is owned by a single goroutine and is not safe for concurrent
// use. It is filled once before dispatch starts and only shrinks afterwards.
package backlog

// node is one element of the linked list.
type node[T any] struct {
	value T
	next  *node[T]
}

// Backlog is a FIFO of pending items.
type Backlog[T any] struct {
	front, back *node[T]
	size        int
}

// New creates a backlog holding items in order.
func New[T any](items []T) *Backlog[T] {
	b := &Backlog[T]{}
	for _, item := range items {
		b.push(item)
	}
	return b
}

func (b *Backlog[T]) push(value T) {
	n := &node[T]{value: value}
	if b.size == 0 {
		b.front = n
		b.back = n
	} else {
		b.back.next = n
		b.back = n
	}
	b.size++
}

// IsEmpty reports whether no items remain.
func (b *Backlog[T]) IsEmpty() bool {
	return b.size == 0
}

// Front returns the oldest item without removing it. The second result is
// false when the backlog is empty.
func (b *Backlog[T]) Front() (T, bool) {
	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.front.value, true
}

// Pop removes the oldest item. It is a no-op on an empty backlog.
func (b *Backlog[T]) Pop() {
	if b.size == 0 {
		return
	}
	next := b.front.next
	b.front.next = nil
	b.front = next
	if next == nil {
		b.back = nil
	}
	b.size--
}

// Len returns the number of items left.
func (b *Backlog[T]) Len() int {
	return b.size
}
