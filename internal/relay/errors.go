package relay

import "errors"

var (
	// ErrServerClosed - returned by Serve and ListenAndServe after Shutdown.
	ErrServerClosed = errors.New("relay.Server: closed")

	// ErrIdentityInUse - another live session already has the same identity.
	ErrIdentityInUse = errors.New("relay.Server: connection identity is in use")

	// ErrNoIdentity - connection has no remote address to derive identity from.
	ErrNoIdentity = errors.New("relay.Server: connection has no identity")
)
