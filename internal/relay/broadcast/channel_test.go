package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChannel(t *testing.T, capacity int) *Channel[string] {
	t.Helper()
	c, err := New[string](capacity)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := New[string](capacity)
		assert.Error(t, err, "capacity %d", capacity)
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	c := newChannel(t, 4)

	n, err := c.Publish("nobody listens")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPublish_ReturnsSubscriberCount(t *testing.T) {
	c := newChannel(t, 4)
	a := c.Subscribe()
	b := c.Subscribe()
	t.Cleanup(func() { a.Close(); b.Close() })

	n, err := c.Publish("hello\n")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSubscription_ReceivesInOrder(t *testing.T) {
	c := newChannel(t, 8)
	s := c.Subscribe()
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, err := c.Publish(fmt.Sprint(i))
		require.NoError(t, err)
	}

	for i := 0; i < 5; i++ {
		v, err := s.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), v)
	}
	_, err := s.TryRecv()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSubscription_EveryoneGetsEveryValue(t *testing.T) {
	c := newChannel(t, 8)
	subs := []*Subscription[string]{c.Subscribe(), c.Subscribe(), c.Subscribe()}

	_, _ = c.Publish("x\n")
	_, _ = c.Publish("y\n")

	for i, s := range subs {
		for _, want := range []string{"x\n", "y\n"} {
			got, err := s.TryRecv()
			require.NoError(t, err, "subscriber %d", i)
			assert.Equal(t, want, got, "subscriber %d", i)
		}
		_, err := s.TryRecv()
		assert.ErrorIs(t, err, ErrEmpty, "subscriber %d must get each value once", i)
		s.Close()
	}
}

func TestSubscribe_NoHistory(t *testing.T) {
	c := newChannel(t, 8)
	_, _ = c.Publish("before")

	late := c.Subscribe()
	defer late.Close()

	_, err := late.TryRecv()
	assert.ErrorIs(t, err, ErrEmpty)

	_, _ = c.Publish("after")
	v, err := late.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, "after", v)
}

func TestSubscription_Lagged(t *testing.T) {
	c := newChannel(t, 3)
	slow := c.Subscribe()
	defer slow.Close()

	for i := 0; i < 7; i++ {
		_, err := c.Publish(fmt.Sprint(i))
		require.NoError(t, err, "publisher must never be blocked by a slow subscriber")
	}

	_, err := slow.TryRecv()
	var lagged *LaggedError
	require.True(t, errors.As(err, &lagged), "expected LaggedError, got %v", err)
	assert.Equal(t, uint64(4), lagged.Missed)

	// continues with the oldest retained values
	for _, want := range []string{"4", "5", "6"} {
		v, err := slow.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	_, err = slow.TryRecv()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSubscription_LagIsPerSubscriber(t *testing.T) {
	c := newChannel(t, 2)
	fast := c.Subscribe()
	slow := c.Subscribe()
	defer fast.Close()
	defer slow.Close()

	for i := 0; i < 6; i++ {
		_, _ = c.Publish(fmt.Sprint(i))
		v, err := fast.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), v)
	}

	_, err := slow.TryRecv()
	var lagged *LaggedError
	require.ErrorAs(t, err, &lagged)
	assert.Equal(t, uint64(4), lagged.Missed)
}

func TestClose_DrainThenClosed(t *testing.T) {
	c := newChannel(t, 4)
	s := c.Subscribe()
	defer s.Close()

	_, _ = c.Publish("last")
	c.Close()
	c.Close() // idempotent

	_, err := c.Publish("too late")
	assert.ErrorIs(t, err, ErrClosed)

	v, err := s.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, "last", v)

	_, err = s.TryRecv()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscription_Close(t *testing.T) {
	c := newChannel(t, 4)
	s := c.Subscribe()
	require.Equal(t, 1, c.Subscribers())

	s.Close()
	s.Close()
	assert.Equal(t, 0, c.Subscribers())

	_, err := s.TryRecv()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReady(t *testing.T) {
	c := newChannel(t, 4)
	s := c.Subscribe()
	defer s.Close()

	ready := s.Ready()
	select {
	case <-ready:
		t.Fatal("ready before anything was published")
	default:
	}

	_, _ = c.Publish("wake")
	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("ready was not signalled by publish")
	}

	// pending value keeps Ready closed until received
	select {
	case <-s.Ready():
	default:
		t.Fatal("ready must be closed while a value is pending")
	}
	_, err := s.TryRecv()
	require.NoError(t, err)

	select {
	case <-s.Ready():
		t.Fatal("ready after everything was received")
	default:
	}
}

func TestRecv(t *testing.T) {
	c := newChannel(t, 4)
	s := c.Subscribe()
	defer s.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = c.Publish("later")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "later", v)
}

func TestRecv_ContextCancelled(t *testing.T) {
	c := newChannel(t, 4)
	s := c.Subscribe()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecv_Closed(t *testing.T) {
	c := newChannel(t, 4)
	s := c.Subscribe()
	defer s.Close()

	go c.Close()

	_, err := s.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublish_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	const producers, perProducer = 4, 50
	c := newChannel(t, producers*perProducer)
	s := c.Subscribe()
	defer s.Close()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, err := c.Publish(fmt.Sprintf("%d:%d", p, i))
				assert.NoError(t, err)
			}
		}(p)
	}
	wg.Wait()

	last := map[int]int{}
	for n := 0; n < producers*perProducer; n++ {
		v, err := s.TryRecv()
		require.NoError(t, err)
		var p, i int
		_, err = fmt.Sscanf(v, "%d:%d", &p, &i)
		require.NoError(t, err)
		if prev, ok := last[p]; ok {
			assert.Equal(t, prev+1, i, "producer %d out of order", p)
		} else {
			assert.Equal(t, 0, i)
		}
		last[p] = i
	}
	assert.Len(t, last, producers)
}
