package relay

import (
	"errors"
	"io"
	"net"

	"github.com/wtask/relay/internal/relay/line"
)

// endReason - describes why a session ended.
type endReason int

const (
	_ endReason = iota
	// endLeft - peer closed its side, possibly in the middle of a line.
	endLeft
	// endTimeout - read idle or write deadline expired.
	endTimeout
	// endReadError - any other read failure, e.g. connection reset.
	endReadError
	// endWriteError - writing a relayed line failed.
	endWriteError
	// endProtocol - peer sent a line that is too long or not UTF-8.
	endProtocol
	// endShutdown - broadcast channel closed or server is stopping.
	endShutdown
)

func (r endReason) String() string {
	switch r {
	case endLeft:
		return "left"
	case endTimeout:
		return "timeout"
	case endReadError:
		return "read_error"
	case endWriteError:
		return "write_error"
	case endProtocol:
		return "protocol_error"
	case endShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

func readEndReason(err error) endReason {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return endLeft
	case errors.Is(err, line.ErrTooLong), errors.Is(err, line.ErrInvalidUTF8):
		return endProtocol
	case errors.As(err, &netErr) && netErr.Timeout():
		return endTimeout
	default:
		return endReadError
	}
}

func writeEndReason(err error) endReason {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return endTimeout
	}
	return endWriteError
}
