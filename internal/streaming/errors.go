package streaming

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamRead = errors.New("object store read failed")
	ErrEncoder      = errors.New("response write failed")
)

// Error is a failed delivery. Committed reports whether any part of the
// response had already reached the client, in which case the only remaining
// option is to drop the connection.
type Error struct {
	Op        string
	Committed bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCommitted reports whether err is a delivery failure after the response started.
func IsCommitted(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Committed
}
