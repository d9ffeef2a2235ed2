package bus

import "errors"

// ErrBusClosed is returned by Send once the bus has been closed.
var ErrBusClosed = errors.New("bus: closed")
