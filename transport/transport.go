// Package transport provides the polymorphic byte-stream abstraction the
// session engine reads and writes control packets through: raw TCP, TLS,
// WebSocket, or an in-memory mock for tests.
package transport

import (
	"io"
	"time"
)

// Transport is the capability set the engine depends on: a blocking byte
// stream with independently adjustable read/write deadlines and an
// idempotent shutdown. Implementations need not be safe for concurrent use
// from more than one goroutine at a time per direction.
type Transport interface {
	io.Reader
	io.Writer

	// SetReadDeadline arms the deadline for the next Read call. A zero
	// value disables the deadline.
	SetReadDeadline(t time.Time) error
	// SetWriteDeadline arms the deadline for the next Write call. A zero
	// value disables the deadline.
	SetWriteDeadline(t time.Time) error
	// Close shuts the transport down. Safe to call more than once.
	Close() error
}
