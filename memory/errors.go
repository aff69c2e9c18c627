package memory

import "errors"

// ErrClosed indicates an operation on a Manager after Close.
var ErrClosed = errors.New("memory: manager closed")
