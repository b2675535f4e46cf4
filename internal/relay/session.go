package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wtask/relay/internal/logging"
	"github.com/wtask/relay/internal/metrics"
	"github.com/wtask/relay/internal/relay/broadcast"
	"github.com/wtask/relay/internal/relay/line"
)

// session - bridges one connection with the broadcast channel in both directions.
type session struct {
	id      Identity
	conn    net.Conn
	lines   *line.Reader
	channel *broadcast.Channel[Message]
	sub     *broadcast.Subscription[Message]

	clock        clockwork.Clock
	writeTimeout time.Duration
	idleTimeout  time.Duration
	logger       *slog.Logger
}

type readResult struct {
	line string
	err  error
}

// newSession - subscribes to channel; the subscription is held until run returns.
func (s *Server) newSession(conn net.Conn, id Identity) (*session, error) {
	lines, err := line.NewReader(conn, s.maxLine)
	if err != nil {
		return nil, err
	}
	return &session{
		id:           id,
		conn:         conn,
		lines:        lines,
		channel:      s.channel,
		sub:          s.channel.Subscribe(),
		clock:        s.clock,
		writeTimeout: s.writeTimeout,
		idleTimeout:  s.idleTimeout,
		logger:       logging.WithSession(s.logger, uuid.NewString(), string(id)),
	}, nil
}

// run - relays until the first fatal condition. Connection and subscription are released on return.
func (ss *session) run(ctx context.Context) (reason endReason, err error) {
	ctx, cancel := context.WithCancel(ctx)
	reads := make(chan readResult)
	wg := sync.WaitGroup{}
	defer func() {
		cancel()
		// unblocks the reader even if its deadline is far away
		ss.conn.Close()
		ss.sub.Close()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ss.readLines(ctx, reads)
	}()

	for {
		select {
		case r := <-reads:
			if r.err != nil {
				return readEndReason(r.err), r.err
			}
			if _, err := ss.channel.Publish(Message{Text: r.line, Origin: ss.id}); err != nil {
				return endShutdown, nil
			}
			metrics.MessagesPublished.Inc()
		case <-ss.sub.Ready():
			msg, err := ss.sub.TryRecv()
			var lagged *broadcast.LaggedError
			switch {
			case err == nil:
				if msg.Origin == ss.id {
					continue
				}
				if err := ss.write(msg.Text); err != nil {
					return writeEndReason(err), err
				}
				metrics.MessagesDelivered.Inc()
			case errors.As(err, &lagged):
				metrics.MessagesLagged.Add(float64(lagged.Missed))
				ss.logger.Debug("Client lagged behind, messages skipped", "missed", lagged.Missed)
			case errors.Is(err, broadcast.ErrClosed):
				return endShutdown, nil
			}
		case <-ctx.Done():
			return endShutdown, nil
		}
	}
}

// readLines - reads lines and hands them to run one by one. Stops after first error.
func (ss *session) readLines(ctx context.Context, reads chan<- readResult) {
	for {
		if ss.idleTimeout > 0 {
			ss.conn.SetReadDeadline(ss.clock.Now().Add(ss.idleTimeout))
		}
		l, err := ss.lines.ReadLine()
		select {
		case reads <- readResult{l, err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (ss *session) write(text string) error {
	ss.conn.SetWriteDeadline(ss.clock.Now().Add(ss.writeTimeout))
	_, err := io.WriteString(ss.conn, text)
	return err
}
