package scribews

import (
	"fmt"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrInvalidAddress   = errors.New("invalid realtime address")
	ErrDecode           = errors.New("cannot decode inbound message")
	ErrReconnectCeiling = errors.New("maximum reconnect attempts reached")
)

const (
	// CloseIntentional is the status code reserved for closes requested by the caller.
	// A close carrying it never triggers a reconnect.
	CloseIntentional = websocket.CloseNormalClosure
	// CloseAbnormal is reported when the transport went away without a close frame.
	CloseAbnormal = websocket.CloseAbnormalClosure
)

// CloseError describes why the peer ended a connection.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed with code %d: %s", e.Code, e.Reason)
}

// Intentional reports whether the close carried CloseIntentional.
func (e *CloseError) Intentional() bool { return e.Code == CloseIntentional }

// closeStatus extracts the close code and reason carried by err. Errors which are not
// a CloseError are treated as abnormal closures.
func closeStatus(err error) (int, string) {
	if err == nil {
		return CloseAbnormal, ""
	}

	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Reason
	}

	return CloseAbnormal, err.Error()
}
