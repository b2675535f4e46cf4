// Package limit implements admission control for accepted connections.
//
// Three independent checks are combined: a per-IP token bucket on new
// connections, a global cap on concurrent connections and a per-IP cap.
// A zero limit disables the corresponding check.
package limit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = 5 * time.Minute
	bucketIdleTTL = 10 * time.Minute
)

// Reason describes why a connection was rejected.
type Reason string

const (
	ReasonGlobal Reason = "global_limit"
	ReasonPerIP  Reason = "per_ip_limit"
	ReasonRate   Reason = "rate_limit"
)

// Config holds the admission limits.
type Config struct {
	MaxConnections      int     // concurrent connections, 0 = unlimited
	MaxConnectionsPerIP int     // concurrent connections per IP, 0 = unlimited
	AcceptRate          float64 // new connections per second per IP, 0 = unlimited
	AcceptBurst         int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limits combines all admission checks. Safe for concurrent use.
type Limits struct {
	cfg   Config
	clock clockwork.Clock

	mu      sync.Mutex
	total   int
	perIP   map[string]int
	buckets map[string]*bucket
	sweepAt time.Time
}

// New creates admission limits.
func New(cfg Config, clock clockwork.Clock) *Limits {
	if cfg.AcceptBurst < 1 {
		cfg.AcceptBurst = 1
	}
	return &Limits{
		cfg:     cfg,
		clock:   clock,
		perIP:   make(map[string]int),
		buckets: make(map[string]*bucket),
		sweepAt: clock.Now().Add(sweepInterval),
	}
}

// Acquire attempts to admit a new connection from ip.
// Returns true and empty reason if admitted; Release must then be called once the connection ends.
func (l *Limits) Acquire(ip string) (bool, Reason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Rate first: a rejected connection still consumes a token
	if !l.allow(ip) {
		return false, ReasonRate
	}
	if l.cfg.MaxConnections > 0 && l.total >= l.cfg.MaxConnections {
		return false, ReasonGlobal
	}
	if l.cfg.MaxConnectionsPerIP > 0 && l.perIP[ip] >= l.cfg.MaxConnectionsPerIP {
		return false, ReasonPerIP
	}

	l.total++
	l.perIP[ip]++
	return true, ""
}

// Release frees the slot taken by a successful Acquire.
func (l *Limits) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total > 0 {
		l.total--
	}
	if count := l.perIP[ip]; count > 1 {
		l.perIP[ip] = count - 1
	} else {
		delete(l.perIP, ip)
	}
}

// Current returns the number of admitted connections.
func (l *Limits) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Count returns the number of admitted connections from ip.
func (l *Limits) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// ActiveBuckets returns the number of tracked per-IP token buckets.
func (l *Limits) ActiveBuckets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// allow must be called with mu held.
func (l *Limits) allow(ip string) bool {
	if l.cfg.AcceptRate <= 0 {
		return true
	}
	now := l.clock.Now()
	if now.After(l.sweepAt) {
		l.sweep(now)
		l.sweepAt = now.Add(sweepInterval)
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.AcceptRate), l.cfg.AcceptBurst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep removes buckets unused for bucketIdleTTL. Must be called with mu held.
func (l *Limits) sweep(now time.Time) {
	cutoff := now.Add(-bucketIdleTTL)
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}
