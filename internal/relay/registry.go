package relay

import (
	"sync"
)

type registry struct {
	mu   sync.RWMutex
	list map[Identity]*session
}

func newRegistry() *registry {
	return &registry{
		list: make(map[Identity]*session),
	}
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

func (r *registry) add(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.list[s.id]; ok {
		return false
	}
	r.list[s.id] = s
	return true
}

func (r *registry) delete(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.list[s.id] == s {
		delete(r.list, s.id)
	}
}

// identities - returns snapshot of live session identities.
func (r *registry) identities() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]Identity, 0, len(r.list))
	for id := range r.list {
		ids = append(ids, id)
	}
	return ids
}
