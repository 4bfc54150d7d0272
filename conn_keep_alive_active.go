package scribews

import (
	"time"
)

type KeepAliveMessageFactory func() Message

// startKeepAlive sends a keep-alive message every HeartbeatInterval while the handle is open.
// The returned func stops the routine; it is a no-op when heartbeats are disabled.
func (c *Conn) startKeepAlive() (stop func()) {
	interval := c.client.config.HeartbeatInterval
	if interval <= 0 {
		return func() {}
	}

	closeC := make(chan struct{})
	go c.keepAlive(interval, closeC)

	return func() { close(closeC) }
}

// keepAlive stops when closeC is closed or the handle's context is done.
func (c *Conn) keepAlive(interval time.Duration, closeC <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-closeC:
			return
		case <-ticker.C:
			if err := c.SendMessage(c.client.keepAliveMessageFactory()); err != nil {
				c.logger.Debugf("keep-alive not sent: %s", err)
			}
		}
	}
}

// NewKeepAliveMessageFactory returns a factory function for creating keep-alive messages.
// It takes a MessageType and a function that generates the content of the message as parameters.
func NewKeepAliveMessageFactory(
	mt MessageType,
	contentFactory func() []byte,
) KeepAliveMessageFactory {
	return func() Message {
		return NewMessage(mt, contentFactory())
	}
}
