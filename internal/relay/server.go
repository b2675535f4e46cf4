// Package relay implements TCP line relay: every line sent by one client is
// written to every other connected client.
//
// Server accepts connections and runs a session per connection. All sessions
// share one broadcast.Channel; a session publishes the lines it reads and
// writes the lines published by others, skipping its own.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wtask/relay/internal/metrics"
	"github.com/wtask/relay/internal/relay/broadcast"
	"github.com/wtask/relay/internal/relay/limit"
	"github.com/wtask/relay/pkg/background"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Server - line relay over any net.Listener implementation.
type Server struct {
	capacity     int
	writeTimeout time.Duration
	idleTimeout  time.Duration
	maxLine      int
	limits       *limit.Limits
	logger       *slog.Logger
	clock        clockwork.Clock
	identify     identifier

	ctx    context.Context
	cancel context.CancelFunc

	channel      *broadcast.Channel[Message]
	sessions     *background.Scope
	stopSessions func()
	clients      *registry

	mu      sync.Mutex
	stopped bool
}

// NewServer - builds relay server with needed options.
func NewServer(options ...serverOption) (*Server, error) {
	s := &Server{
		capacity:     10,
		writeTimeout: 30 * time.Second,
		maxLine:      64 * 1024,
		logger:       slog.Default(),
		clock:        clockwork.NewRealClock(),
		identify:     remoteIdentity,
		clients:      newRegistry(),
	}
	if err := setup(s, options...); err != nil {
		return nil, err
	}

	channel, err := broadcast.New[Message](s.capacity)
	if err != nil {
		return nil, fmt.Errorf("relay.NewServer: %w", err)
	}
	s.channel = channel
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sessions, s.stopSessions = background.NewScope(s.ctx)
	return s, nil
}

// ListenAndServe - binds TCP address once and serves it. Bind failure is returned as is, without retries.
func (s *Server) ListenAndServe(addr string) error {
	if s.ctx.Err() != nil {
		return ErrServerClosed
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay.Server: listen %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve - accepts connections until Shutdown, starting a session for each.
// Failed accepts are logged and retried with a short backoff.
// Always returns non-nil error; ErrServerClosed after Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	if listener == nil {
		return errors.New("relay.Server: listener is nil")
	}
	served := make(chan struct{})
	defer close(served)
	go func() {
		select {
		case <-s.ctx.Done():
			listener.Close()
		case <-served:
		}
	}()

	s.logger.Info("Relay listening", "addr", listener.Addr().String(), "capacity", s.capacity)

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			metrics.AcceptErrors.Inc()
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff *= 2
			}
			if backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}
			s.logger.Warn("Accept failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-s.clock.After(backoff):
			case <-s.ctx.Done():
				return ErrServerClosed
			}
			continue
		}
		backoff = 0
		s.handle(conn)
	}
}

// handle - admits connection and starts its session in background.
func (s *Server) handle(conn net.Conn) {
	id := s.identify(conn)
	if id == "" {
		s.logger.Warn("Dropping connection", "error", ErrNoIdentity)
		conn.Close()
		return
	}

	host := id.Host()
	if s.limits != nil {
		if ok, reason := s.limits.Acquire(host); !ok {
			s.logger.Warn("Rejecting connection", "remote", string(id), "reason", string(reason))
			metrics.ConnectionsRejected.WithLabelValues(string(reason)).Inc()
			conn.Close()
			return
		}
	}
	release := func() {
		if s.limits != nil {
			s.limits.Release(host)
		}
	}

	ss, err := s.newSession(conn, id)
	if err != nil {
		s.logger.Error("Can't start session", "remote", string(id), "error", err)
		conn.Close()
		release()
		return
	}
	if !s.clients.add(ss) {
		ss.logger.Warn("Dropping connection", "error", ErrIdentityInUse)
		ss.sub.Close()
		conn.Close()
		release()
		return
	}

	started := s.sessions.Go(func(ctx context.Context) {
		defer release()
		defer s.clients.delete(ss)
		s.serveSession(ctx, ss)
	})
	if !started {
		s.clients.delete(ss)
		ss.sub.Close()
		conn.Close()
		release()
	}
}

func (s *Server) serveSession(ctx context.Context, ss *session) {
	from := s.clock.Now()
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	ss.logger.Debug("Session started", "subscribers", s.channel.Subscribers())

	reason, err := ss.run(ctx)

	lifetime := s.clock.Since(from)
	metrics.ConnectionsActive.Dec()
	metrics.SessionDuration.Observe(lifetime.Seconds())
	metrics.SessionEnds.WithLabelValues(reason.String()).Inc()
	switch reason {
	case endLeft, endShutdown:
		ss.logger.Debug("Session ended", "reason", reason.String(), "duration", lifetime)
	default:
		ss.logger.Info("Session ended", "reason", reason.String(), "duration", lifetime, "error", err)
	}
}

// Shutdown - stops accepting, closes the broadcast channel and waits for sessions to finish.
// Returns duration of time spent for shutdown. This time is about the given timeout at most.
func (s *Server) Shutdown(timeout time.Duration) time.Duration {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0
	}
	s.stopped = true
	s.mu.Unlock()

	from := s.clock.Now()
	s.cancel()
	s.channel.Close()
	done := make(chan struct{})
	go func() {
		s.stopSessions()
		close(done)
	}()
	select {
	case <-done:
	case <-s.clock.After(timeout):
		s.logger.Warn("Shutdown timeout exceeded", "timeout", timeout, "clients", s.clients.len())
	}
	return s.clock.Since(from)
}

// Subscribers - returns number of sessions subscribed to the broadcast channel.
func (s *Server) Subscribers() int {
	return s.channel.Subscribers()
}

// Capacity - returns number of messages retained for lagging clients.
func (s *Server) Capacity() int {
	return s.channel.Capacity()
}

// Clients - returns identities of connected clients.
func (s *Server) Clients() []Identity {
	return s.clients.identities()
}
