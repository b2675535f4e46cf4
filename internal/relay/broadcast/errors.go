package broadcast

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed - channel is closed and there is nothing left to receive.
	ErrClosed = errors.New("broadcast: channel closed")

	// ErrEmpty - nothing to receive right now.
	ErrEmpty = errors.New("broadcast: channel empty")
)

// LaggedError - subscription fell behind and Missed values were overwritten.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("broadcast: subscriber lagged, %d message(s) skipped", e.Missed)
}
