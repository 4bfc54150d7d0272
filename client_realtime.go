package scribews

import (
	"sort"
	"sync"

	"github.com/fasthttp/websocket"
)

// Client keeps logically continuous realtime channels, one per address, on top of transport
// connections that may drop at any time. Drops are hidden from callers except through their
// Handler. A Client is safe for concurrent use; handlers may call back into it.
type Client struct {
	config Config
	logger Logger

	factory                 ConnectionFactory
	dialer                  *websocket.Dialer
	paramsGetter            OpenConnectionParamsGetter
	errAdapters             ErrorAdapters
	backoff                 BackoffCalculator
	scheduler               scheduler
	keepAliveMessageFactory KeepAliveMessageFactory

	emitter *EventEmitterCallback[EventType, Event]

	mu       sync.Mutex
	conns    map[string]*Conn
	attempts map[string]int
	timers   map[string]*reconnectTimer
}

// New builds a Client. Zero values of cfg fall back to DefaultConfig where a zero is meaningless.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		config:    cfg.withDefaults(),
		emitter:   NewEventEmitter[EventType, Event](),
		scheduler: timeScheduler{},
		conns:     make(map[string]*Conn),
		attempts:  make(map[string]int),
		timers:    make(map[string]*reconnectTimer),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = NopLogger()
	}
	c.logger = c.logger.WithField("type", "realtime_client")

	if c.backoff == nil {
		c.backoff = ExponentialBackoff(c.config.ReconnectDelay)
	}
	if c.keepAliveMessageFactory == nil {
		c.keepAliveMessageFactory = NewKeepAliveMessageFactory(PingMessage, func() []byte { return nil })
	}
	if c.factory == nil {
		dialer := c.dialer
		if dialer == nil {
			dialer = &websocket.Dialer{
				Proxy:            websocket.DefaultDialer.Proxy,
				HandshakeTimeout: c.config.DialTimeout,
			}
		}
		getter := c.paramsGetter
		if getter == nil {
			getter = StaticHeaderParams(nil)
		}
		c.factory = NewWebsocketFactory(
			c.logger,
			dialer,
			NewOpenConnectionParamsRepo(c.logger, getter),
			c.errAdapters,
		)
	}

	return c
}

// Connect opens a channel to address and returns its handle right away; completion is observed
// through h. Address may be a bare path, resolved against the base address, or a
// fully-qualified ws:// or wss:// address. An existing channel for the same address is closed
// intentionally and replaced. When the address is invalid, h.OnError receives an error wrapping
// ErrInvalidAddress and Connect returns nil.
func (c *Client) Connect(address string, h Handler) *Conn {
	if h == nil {
		h = Handlers{}
	}

	resolved, err := ResolveAddress(c.config.BaseAddress, address)
	if err != nil {
		c.logger.Errorf("cannot connect to %q: %s", address, err)
		h.OnError(nil, err)
		c.emitter.Emit(EventError, Event{Type: EventError, Address: address, Err: err})
		return nil
	}

	return c.connect(resolved, h)
}

func (c *Client) connect(address string, h Handler) *Conn {
	c.mu.Lock()
	conn, prev := c.registerLocked(address, h)
	c.mu.Unlock()

	if prev != nil {
		prev.closeIntentionally()
	}

	go conn.run()

	return conn
}

// registerLocked installs a fresh handle for address and drops its pending reconnect. It returns
// the new handle and the one it replaced, if any.
func (c *Client) registerLocked(address string, h Handler) (conn, prev *Conn) {
	conn = newConn(c, address, h)
	prev = c.conns[address]
	c.conns[address] = conn
	if t, ok := c.timers[address]; ok {
		t.timer.Stop()
		delete(c.timers, address)
	}
	return conn, prev
}

// Disconnect closes the channel to address with CloseIntentional and forgets it, including any
// pending reconnect. Unknown addresses are ignored.
func (c *Client) Disconnect(address string) {
	resolved, err := ResolveAddress(c.config.BaseAddress, address)
	if err != nil {
		c.logger.Debugf("ignoring disconnect of %q: %s", address, err)
		return
	}

	keys := []string{resolved}
	if alt := c.reconnectAddress(resolved); alt != resolved {
		keys = append(keys, alt)
	}

	var conns []*Conn

	c.mu.Lock()
	for _, key := range keys {
		if conn, ok := c.conns[key]; ok {
			conns = append(conns, conn)
		}
		c.forgetLocked(key)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		c.disconnect(conn)
	}
}

// DisconnectAll disconnects every address. Registry, counters and pending reconnects end up empty.
func (c *Client) DisconnectAll() {
	c.mu.Lock()
	conns := make([]*Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	for _, t := range c.timers {
		t.timer.Stop()
	}
	c.conns = make(map[string]*Conn)
	c.attempts = make(map[string]int)
	c.timers = make(map[string]*reconnectTimer)
	c.mu.Unlock()

	for _, conn := range conns {
		c.disconnect(conn)
	}
}

func (c *Client) disconnect(conn *Conn) {
	conn.logger.Infof("disconnecting")
	conn.closeIntentionally()
	c.emitter.Emit(EventDisconnect, Event{
		Type:    EventDisconnect,
		Address: conn.address,
		ConnID:  conn.id,
		Code:    CloseIntentional,
	})
}

// On registers a client-wide listener, called after the per-address handler.
func (c *Client) On(t EventType, listener func(Event)) {
	c.emitter.On(t, listener)
}

// Conn returns the live handle registered for address.
func (c *Client) Conn(address string) (*Conn, bool) {
	resolved, err := ResolveAddress(c.config.BaseAddress, address)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[resolved]
	return conn, ok
}

// Attempts returns the consecutive reconnect attempts of address since its last successful open.
func (c *Client) Attempts(address string) int {
	resolved, err := ResolveAddress(c.config.BaseAddress, address)
	if err != nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts[resolved]
}

// Addresses lists the registered resolved addresses in lexical order.
func (c *Client) Addresses() []string {
	c.mu.Lock()
	addrs := make([]string, 0, len(c.conns))
	for addr := range c.conns {
		addrs = append(addrs, addr)
	}
	c.mu.Unlock()

	sort.Strings(addrs)
	return addrs
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// markOpen resets the counter of conn's address, provided conn is still the registered handle.
func (c *Client) markOpen(conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conns[conn.address] == conn {
		c.attempts[conn.address] = 0
	}
}

func (c *Client) forgetLocked(address string) {
	delete(c.conns, address)
	delete(c.attempts, address)
	if t, ok := c.timers[address]; ok {
		t.timer.Stop()
		delete(c.timers, address)
	}
}
