package scribews

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Conn is the handle of one transport connection registered for an address. Every reconnect
// produces a new Conn for the same address; Client.Conn returns the current one.
type Conn struct {
	id      string
	address string
	client  *Client
	handler Handler
	conn    Connection
	logger  Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	open        bool
	intentional bool

	done chan struct{}
}

func newConn(client *Client, address string, handler Handler) *Conn {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	return &Conn{
		id:      id,
		address: address,
		client:  client,
		handler: handler,
		logger: client.logger.
			WithField("address", address).
			WithField("conn_id", id),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID is unique per handle, reconnects get a new one.
func (c *Conn) ID() string { return c.id }

// Address is the resolved address the handle is registered under.
func (c *Conn) Address() string { return c.address }

// Done is closed once the handle closed and its close callback returned.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send encodes v as JSON and writes it as a text frame.
func (c *Conn) Send(v any) error {
	m, err := NewJSONMessage(v)
	if err != nil {
		return err
	}
	return c.SendMessage(m)
}

// SendMessage writes m as is. It fails with ErrConnectionClosed unless the handle is open.
func (c *Conn) SendMessage(m Message) error {
	c.mu.Lock()
	open := c.open && !c.intentional
	conn := c.conn
	c.mu.Unlock()

	if !open {
		return ErrConnectionClosed
	}

	return conn.Write(m)
}

func (c *Conn) run() {
	defer close(c.done)
	defer c.cancel()

	if !c.attach() {
		// Disconnected before it started: nothing was dialed, nothing to report.
		return
	}

	code, reason := c.serve()

	c.logger.Infof("closed with code %d: %s", code, reason)
	c.handler.OnClose(c, code, reason)
	c.client.emitter.Emit(EventClose, Event{
		Type:    EventClose,
		Address: c.address,
		ConnID:  c.id,
		Code:    code,
		Reason:  reason,
	})

	if code == CloseIntentional {
		return
	}

	c.client.handleReconnect(c)
}

// attach creates the transport of the handle unless it was already closed intentionally.
func (c *Conn) attach() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.intentional {
		return false
	}
	c.conn = c.client.factory(c.address)
	return true
}

// serve dials, dispatches inbound frames until the connection goes away and returns the close
// status to report.
func (c *Conn) serve() (int, string) {
	ctx, cancel := context.WithTimeout(c.ctx, c.client.config.DialTimeout)
	err := c.conn.Open(ctx)
	cancel()

	if err != nil {
		if c.isIntentional() {
			return CloseIntentional, ""
		}
		c.logger.Warnf("cannot open connection: %s", err)
		c.reportError(err)
		return CloseAbnormal, err.Error()
	}

	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		_ = c.conn.Close(CloseIntentional, "")
		return CloseIntentional, ""
	}
	c.open = true
	c.mu.Unlock()

	c.client.markOpen(c)
	c.logger.Infof("connected")
	c.handler.OnOpen(c)
	c.client.emitter.Emit(EventConnect, Event{Type: EventConnect, Address: c.address, ConnID: c.id})

	stopKeepAlive := c.startKeepAlive()
	defer stopKeepAlive()

	for {
		m, err := c.conn.Read()
		if err != nil {
			c.mu.Lock()
			c.open = false
			intentional := c.intentional
			c.mu.Unlock()

			if intentional {
				return CloseIntentional, ""
			}

			// The transport is only released here; the close handshake, if any, already happened.
			code, reason := closeStatus(err)
			_ = c.conn.Close(code, reason)
			return code, reason
		}

		if !m.Type().carriesPayload() {
			continue
		}

		payload, err := ParsePayload(m.Data())
		if err != nil {
			c.logger.Warnf("dropping undecodable message: %s", err)
			c.reportError(err)
			continue
		}

		c.handler.OnMessage(c, payload)
		c.client.emitter.Emit(EventMessage, Event{Type: EventMessage, Address: c.address, ConnID: c.id})
	}
}

func (c *Conn) reportError(err error) {
	c.handler.OnError(c, err)
	c.client.emitter.Emit(EventError, Event{
		Type:    EventError,
		Address: c.address,
		ConnID:  c.id,
		Err:     err,
	})
}

// closeIntentionally closes the handle with CloseIntentional. The close callback still fires,
// from the handle's own goroutine, and no reconnect follows.
func (c *Conn) closeIntentionally() {
	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		return
	}
	c.intentional = true
	conn := c.conn
	c.mu.Unlock()

	// Aborts a dial in flight.
	c.cancel()

	if conn == nil {
		return
	}

	if err := conn.Close(CloseIntentional, ""); err != nil {
		c.logger.Debugf("error closing connection: %s", err)
	}
}

func (c *Conn) isIntentional() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intentional
}
