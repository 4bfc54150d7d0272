package scribews

import (
	"context"
)

type (
	// Connection is a single transport-level duplex connection. It is opened once and never reused
	// after it closes; reconnecting always asks the ConnectionFactory for a fresh one.
	Connection interface {
		// Open dials the remote end. It blocks until the connection is usable or the dial failed.
		Open(ctx context.Context) error
		// Read blocks until the next frame arrives. Once the connection is gone it returns an
		// error, a *CloseError when the peer sent a close frame.
		Read() (Message, error)
		// Write sends a frame. It is safe to call concurrently with Read.
		Write(m Message) error
		// Close sends a close frame with the given code and releases resources. Calling it more
		// than once has no effect.
		Close(code int, reason string) error
	}

	ConnectionFactory func(address string) Connection
)
