package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wtask/relay/internal/relay/limit"
)

type serverOption func(s *Server) error

func setup(s *Server, options ...serverOption) error {
	if s == nil {
		return nil
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(s); err != nil {
			return err
		}
	}
	return nil
}

// WithCapacity - overwrites default number of messages retained for lagging clients.
func WithCapacity(capacity int) serverOption {
	return func(s *Server) error {
		if capacity <= 0 {
			return fmt.Errorf("relay.WithCapacity: invalid capacity (%d)", capacity)
		}
		s.capacity = capacity
		return nil
	}
}

// WithWriteTimeout - overwrites default write timeout of connections.
// A client that does not accept a relayed line within timeout is disconnected.
func WithWriteTimeout(timeout time.Duration) serverOption {
	return func(s *Server) error {
		if timeout <= 0 {
			return fmt.Errorf("relay.WithWriteTimeout: invalid timeout (%v)", timeout)
		}
		s.writeTimeout = timeout
		return nil
	}
}

// WithIdleTimeout - disconnects clients which send nothing during timeout.
// Zero disables idle timeout (default).
func WithIdleTimeout(timeout time.Duration) serverOption {
	return func(s *Server) error {
		if timeout < 0 {
			return fmt.Errorf("relay.WithIdleTimeout: invalid timeout (%v)", timeout)
		}
		s.idleTimeout = timeout
		return nil
	}
}

// WithMaxLineLength - overwrites default limit of inbound line size in bytes, terminator included.
func WithMaxLineLength(max int) serverOption {
	return func(s *Server) error {
		if max <= 0 {
			return fmt.Errorf("relay.WithMaxLineLength: invalid length (%d)", max)
		}
		s.maxLine = max
		return nil
	}
}

// WithLimits - attach admission control for accepted connections.
func WithLimits(limits *limit.Limits) serverOption {
	return func(s *Server) error {
		if limits == nil {
			return errors.New("relay.WithLimits: limits is nil")
		}
		s.limits = limits
		return nil
	}
}

// WithLogger - overwrites default slog logger.
func WithLogger(logger *slog.Logger) serverOption {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("relay.WithLogger: logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// WithClock - overwrites real clock, used for deadlines, backoff and durations.
func WithClock(clock clockwork.Clock) serverOption {
	return func(s *Server) error {
		if clock == nil {
			return errors.New("relay.WithClock: clock is nil")
		}
		s.clock = clock
		return nil
	}
}
