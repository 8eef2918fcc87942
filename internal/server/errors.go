package server

import "errors"

var (
	// ErrConnectionClosed describes an operation attempted on a
	// connection that has already been closed. No function in this
	// package returns it; a repeated Connection.Close returns nil.
	ErrConnectionClosed = errors.New("connection already closed")
)
