package server

import (
	"errors"
	"fmt"
)

// ErrNoActiveConnection is returned by Send when no client is attached.
var ErrNoActiveConnection = errors.New("no active client connection")

// BindError reports that the listening socket could not be opened.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// WriteError reports a failed frame write to the client.
type WriteError struct {
	Remote string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s: %v", e.Remote, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
