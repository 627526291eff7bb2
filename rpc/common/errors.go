package common

import (
	"errors"
	"fmt"
)

// ErrConnectionClosed is reported to every waiter once the connection was closed locally
var ErrConnectionClosed = errors.New("connection closed")

// ConnectionError is the fatal error of a connection. Once set it is
// delivered to every pending and every future request of that connection.
type ConnectionError struct {
	// Op is the operation that failed: read, decode, write or close
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("opentick connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
