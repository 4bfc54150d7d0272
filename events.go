package scribews

import "time"

type EventType string

const (
	EventConnect          EventType = "connect"
	EventMessage          EventType = "message"
	EventError            EventType = "error"
	EventClose            EventType = "close"
	EventReconnect        EventType = "reconnect"
	EventReconnectCeiling EventType = "reconnect_ceiling"
	EventDisconnect       EventType = "disconnect"
)

// Event is what client-wide listeners registered with Client.On receive.
type Event struct {
	Type    EventType
	Address string
	// ConnID identifies the underlying handle, empty when none exists.
	ConnID string
	// Attempt is the reconnect attempt number for EventReconnect and the attempts
	// spent for EventReconnectCeiling.
	Attempt int
	// Delay is the backoff that preceded an EventReconnect.
	Delay  time.Duration
	Code   int
	Reason string
	Err    error
}
