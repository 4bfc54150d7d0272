package scribews

import (
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
)

type (
	// Handler receives the events of every connection attempt made for one address, reconnects
	// included. All methods of a Handler are called from the goroutine of the handle involved,
	// in the order open → (message | error)* → close.
	Handler interface {
		// OnOpen is called once the transport is established.
		OnOpen(c *Conn)
		// OnMessage is called for every inbound frame that parses as JSON.
		OnMessage(c *Conn, p Payload)
		// OnError reports non-fatal failures: transport errors and undecodable frames. c is nil
		// when the address could not be resolved and no handle was created.
		OnError(c *Conn, err error)
		// OnClose is called once per handle with the close code and reason.
		OnClose(c *Conn, code int, reason string)
		// OnReconnectCeiling is called when the address ran out of reconnect attempts.
		OnReconnectCeiling(address string)
	}

	// Handlers implements Handler with optional funcs. Nil members are skipped.
	Handlers struct {
		Open             func(c *Conn)
		Message          func(c *Conn, p Payload)
		Error            func(c *Conn, err error)
		Close            func(c *Conn, code int, reason string)
		ReconnectCeiling func(address string)
	}

	Config struct {
		// BaseAddress is the realtime origin bare paths are resolved against, e.g. ws://localhost:8000.
		BaseAddress string
		// GatewayPrefix is stripped from endpoints re-derived on reconnect.
		GatewayPrefix string
		// MaxReconnectAttempts is the reconnect ceiling.
		MaxReconnectAttempts int
		// ReconnectDelay is the base delay; attempt n waits ReconnectDelay * 2^n.
		ReconnectDelay time.Duration
		// HeartbeatInterval enables ping frames on every open handle when positive.
		HeartbeatInterval time.Duration
		// DialTimeout bounds each dial.
		DialTimeout time.Duration
	}

	Option func(*Client)
)

func (h Handlers) OnOpen(c *Conn) {
	if h.Open != nil {
		h.Open(c)
	}
}

func (h Handlers) OnMessage(c *Conn, p Payload) {
	if h.Message != nil {
		h.Message(c, p)
	}
}

func (h Handlers) OnError(c *Conn, err error) {
	if h.Error != nil {
		h.Error(c, err)
	}
}

func (h Handlers) OnClose(c *Conn, code int, reason string) {
	if h.Close != nil {
		h.Close(c, code, reason)
	}
}

func (h Handlers) OnReconnectCeiling(address string) {
	if h.ReconnectCeiling != nil {
		h.ReconnectCeiling(address)
	}
}

// DefaultConfig targets a local backend with three reconnect attempts starting at 5s.
func DefaultConfig() Config {
	return Config{
		BaseAddress:          "ws://localhost:8000",
		GatewayPrefix:        DefaultGatewayPrefix,
		MaxReconnectAttempts: 3,
		ReconnectDelay:       5000 * time.Millisecond,
		DialTimeout:          10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	return c
}

// WithLogger sets the logger of the client and its connections.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithConnectionFactory replaces the websocket transport.
func WithConnectionFactory(f ConnectionFactory) Option {
	return func(c *Client) {
		c.factory = f
	}
}

// WithDialer tunes the websocket dialer used by the default transport.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithOpenConnectionParams resolves the URL and headers of every dial.
func WithOpenConnectionParams(getter OpenConnectionParamsGetter) Option {
	return func(c *Client) {
		c.paramsGetter = getter
	}
}

// WithHeader attaches header to every dial.
func WithHeader(header http.Header) Option {
	return WithOpenConnectionParams(StaticHeaderParams(header))
}

// WithErrorAdapters customises how dial failures of the default transport are reported.
func WithErrorAdapters(a ErrorAdapters) Option {
	return func(c *Client) {
		c.errAdapters = a
	}
}

// WithBackoff replaces the exponential reconnect delay.
func WithBackoff(b BackoffCalculator) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

// WithKeepAliveMessage changes the frame sent on every heartbeat.
func WithKeepAliveMessage(f KeepAliveMessageFactory) Option {
	return func(c *Client) {
		c.keepAliveMessageFactory = f
	}
}

func withScheduler(s scheduler) Option {
	return func(c *Client) {
		c.scheduler = s
	}
}
