package relay

import "net"

// Identity - identifies the origin of a message for the whole session lifetime.
type Identity string

// Message - line published by a session. Text keeps its '\n' terminator.
type Message struct {
	Text   string
	Origin Identity
}

type identifier func(net.Conn) Identity

// remoteIdentity - derives identity from the remote endpoint of connection.
func remoteIdentity(c net.Conn) Identity {
	if c == nil || c.RemoteAddr() == nil {
		return ""
	}
	return Identity(c.RemoteAddr().String())
}

// Host - returns host part of identity, or identity itself if it is not host:port.
func (id Identity) Host() string {
	host, _, err := net.SplitHostPort(string(id))
	if err != nil {
		return string(id)
	}
	return host
}
