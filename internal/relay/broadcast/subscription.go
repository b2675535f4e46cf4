package broadcast

import (
	"context"
	"sync"
)

// closedReady is returned by Ready when a value is already pending.
var closedReady = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Subscription - receiving side of a Channel owned by a single consumer.
type Subscription[T any] struct {
	ch   *Channel[T]
	next uint64

	closeOnce sync.Once
	done      bool
}

// TryRecv - returns next value without waiting.
//
// Errors: ErrEmpty when nothing is pending, *LaggedError when values were overwritten
// before they could be received (the subscription continues with the oldest retained value),
// ErrClosed when the channel is closed and everything retained was received.
func (s *Subscription[T]) TryRecv() (T, error) {
	var zero T
	c := s.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.done {
		return zero, ErrClosed
	}
	if s.next == c.tail {
		if c.closed {
			return zero, ErrClosed
		}
		return zero, ErrEmpty
	}
	if oldest := c.oldest(); s.next < oldest {
		missed := oldest - s.next
		s.next = oldest
		return zero, &LaggedError{Missed: missed}
	}
	v := c.ring[s.next%uint64(len(c.ring))]
	s.next++
	return v, nil
}

// Ready - returns channel which is closed as soon as TryRecv has something to report.
// The returned channel must be re-requested after every TryRecv.
func (s *Subscription[T]) Ready() <-chan struct{} {
	c := s.ch
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.done || c.closed || s.next != c.tail {
		return closedReady
	}
	return c.wake
}

// Recv - waits for next value or ctx cancellation.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := s.TryRecv()
		if err != ErrEmpty {
			return v, err
		}
		select {
		case <-s.Ready():
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Close - releases subscription. Safe to call several times.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		c := s.ch
		c.mu.Lock()
		defer c.mu.Unlock()
		s.done = true
		c.subs--
	})
}
