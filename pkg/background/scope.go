// Package background groups goroutines which share one cancellation and one wait.
package background

import (
	"context"
	"sync"
)

// Scope - abstract concurrency scope
type Scope struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	scope     sync.WaitGroup
	// mu orders Go against cancellation, so no member is added after Wait begins.
	mu sync.RWMutex
}

// NewScope - concurrency scope builder. Scope is cancelled with parent too.
// Returned cancel func cancels the scope and waits for all its members.
func NewScope(parent context.Context) (scope *Scope, cancel func()) {
	ctx, cancelFunc := context.WithCancel(parent)
	b := &Scope{
		ctx:       ctx,
		ctxCancel: cancelFunc,
	}
	return b,
		func() {
			b.mu.Lock()
			b.ctxCancel()
			b.mu.Unlock()
			b.scope.Wait()
		}
}

// Context - return background context
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go - runs f as a new member of scope.
// Returns false without running f if scope is already cancelled.
func (s *Scope) Go(f func(ctx context.Context)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.scope.Add(1)
	go func() {
		defer s.scope.Done()
		f(s.ctx)
	}()
	return true
}

// Add - notifies scope to register processes/workers/layers.
// Based on sync.WaitGroup.
func (s *Scope) Add(delta int) {
	s.scope.Add(delta)
}

// Done - notifies scope when process/worker/layer is done.
// Based on sync.WaitGroup.
func (s *Scope) Done() {
	s.scope.Done()
}

// Wait - blocks until all members are done, without cancelling scope.
func (s *Scope) Wait() {
	s.scope.Wait()
}
