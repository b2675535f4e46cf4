package relay

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wtask/relay/internal/relay/line"
)

func TestIdentity_Host(t *testing.T) {
	tests := []struct {
		id   Identity
		want string
	}{
		{"127.0.0.1:5000", "127.0.0.1"},
		{"[::1]:80", "::1"},
		{"pipe", "pipe"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.id.Host(), string(tt.id))
	}
}

func TestRemoteIdentity(t *testing.T) {
	assert.Equal(t, Identity(""), remoteIdentity(nil))

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	assert.Equal(t, Identity("pipe"), remoteIdentity(a))
}

func TestRegistry(t *testing.T) {
	r := newRegistry()
	first := &session{id: "a"}
	duplicate := &session{id: "a"}

	assert.True(t, r.add(first))
	assert.False(t, r.add(duplicate))
	assert.Equal(t, 1, r.len())

	// only the registered session may remove its identity
	r.delete(duplicate)
	assert.Equal(t, []Identity{"a"}, r.identities())

	r.delete(first)
	assert.Equal(t, 0, r.len())
	assert.Empty(t, r.identities())
}

func TestEndReason(t *testing.T) {
	reads := []struct {
		err  error
		want endReason
	}{
		{io.EOF, endLeft},
		{io.ErrUnexpectedEOF, endLeft},
		{line.ErrTooLong, endProtocol},
		{fmt.Errorf("read: %w", line.ErrInvalidUTF8), endProtocol},
		{os.ErrDeadlineExceeded, endTimeout},
		{syscall.ECONNRESET, endReadError},
		{io.ErrClosedPipe, endReadError},
	}
	for _, tt := range reads {
		assert.Equal(t, tt.want, readEndReason(tt.err), tt.err.Error())
	}

	assert.Equal(t, endTimeout, writeEndReason(os.ErrDeadlineExceeded))
	assert.Equal(t, endWriteError, writeEndReason(syscall.EPIPE))

	assert.Equal(t, "left", endLeft.String())
	assert.Equal(t, "protocol_error", endProtocol.String())
	assert.Equal(t, "shutdown", endShutdown.String())
	assert.Equal(t, "unknown", endReason(0).String())
}
