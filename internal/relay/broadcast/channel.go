// Package broadcast implements a bounded multi-producer, multi-consumer fan-out channel.
//
// Published values land in a ring of fixed capacity shared by all subscribers.
// Every subscription keeps its own cursor, so a slow consumer never delays the
// publisher or the other consumers: once it falls further behind than the ring
// can hold, the oldest values are overwritten and the consumer is told how many
// it missed (LaggedError) before it continues from the oldest retained value.
package broadcast

import (
	"fmt"
	"sync"
)

// Channel - fan-out channel. Safe for concurrent use.
type Channel[T any] struct {
	mu     sync.Mutex
	ring   []T
	tail   uint64 // sequence number of the next published value
	subs   int
	closed bool
	// wake is closed and replaced on every publish and on Close.
	wake chan struct{}
}

// New - builds channel retaining at most capacity values per lagging subscriber.
func New[T any](capacity int) (*Channel[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("broadcast.New: invalid capacity (%d)", capacity)
	}
	return &Channel[T]{
		ring: make([]T, capacity),
		wake: make(chan struct{}),
	}, nil
}

// Publish - stores v for every current subscriber and returns their number.
// It never waits for subscribers: when the ring is full the oldest value is overwritten.
// Publishing with no subscribers is not an error.
func (c *Channel[T]) Publish(v T) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	c.ring[c.tail%uint64(len(c.ring))] = v
	c.tail++
	c.notify()
	return c.subs, nil
}

// Subscribe - creates subscription which receives values published after this call.
func (c *Channel[T]) Subscribe() *Subscription[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs++
	return &Subscription[T]{ch: c, next: c.tail}
}

// Close - closes channel. Subscribers drain what is retained, then get ErrClosed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.notify()
}

// Subscribers - returns number of open subscriptions.
func (c *Channel[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs
}

// Capacity - returns ring size.
func (c *Channel[T]) Capacity() int {
	return len(c.ring)
}

// notify must be called with mu held.
func (c *Channel[T]) notify() {
	close(c.wake)
	if c.closed {
		return
	}
	c.wake = make(chan struct{})
}

// oldest must be called with mu held.
func (c *Channel[T]) oldest() uint64 {
	n := uint64(len(c.ring))
	if c.tail < n {
		return 0
	}
	return c.tail - n
}
