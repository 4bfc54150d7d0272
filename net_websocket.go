package scribews

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const writeWait = time.Second

type (
	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// WsConnection represents a WebSocket connection.
	// It implements the Connection interface.
	WsConnection struct {
		address                  string
		errAdapters              ErrorAdapters
		openConnectionParamsRepo OpenConnectionParamsRepo
		logger                   Logger
		dialer                   *websocket.Dialer

		mu     sync.Mutex
		conn   *websocket.Conn
		closed bool
		// broken is set once a read failed; the peer is gone or already answered its close frame.
		broken bool

		writeMu sync.Mutex
	}
)

func NewWebsocketConnection(
	address string,
	dialer *websocket.Dialer,
	openParamsRepo OpenConnectionParamsRepo,
	logger Logger,
	errorHandlers ErrorAdapters,
) *WsConnection {
	return &WsConnection{
		address:                  address,
		errAdapters:              errorHandlers,
		dialer:                   dialer,
		openConnectionParamsRepo: openParamsRepo,
		logger:                   logger.WithField("net", "ws_connection"),
	}
}

func NewWebsocketFactory(
	logger Logger,
	dialer *websocket.Dialer,
	openConnectionParamsRepo OpenConnectionParamsRepo,
	errorHandlers ErrorAdapters,
) ConnectionFactory {
	return func(address string) Connection {
		return NewWebsocketConnection(
			address,
			dialer,
			openConnectionParamsRepo,
			logger,
			errorHandlers,
		)
	}
}

// Open initiates the WebSocket connection.
// This method is blocking and returns when the connection is successfully established or an error occurs.
func (w *WsConnection) Open(ctx context.Context) error {
	p, err := w.openConnectionParamsRepo.Get(ctx, w.address)
	if err != nil {
		return err
	}

	conn, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err = w.handleDialError(conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		if conn != nil {
			_ = conn.Close()
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		// Closed while dialing.
		_ = conn.Close()
		return ErrTerminated
	}

	w.conn = conn
	w.logger.Debugf("success opening connection to %s", p.URL.String())

	return nil
}

// Read returns the next text or binary frame. Control frames are answered by the underlying
// connection and never surface here.
func (w *WsConnection) Read() (Message, error) {
	conn := w.current()
	if conn == nil {
		return nil, ErrConnectionClosed
	}

	messageType, bts, err := conn.ReadMessage()
	if err != nil {
		w.mu.Lock()
		w.broken = true
		w.mu.Unlock()

		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			w.logger.Debugf("<= [CLOSE] %d %s", ce.Code, ce.Text)
			return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}

		w.logger.Debugf("error occurred on websocket read: %s", err)
		return nil, errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error())
	}

	switch messageType {
	case websocket.BinaryMessage:
		w.logger.Debugln("<= [BIN]")
		return NewBinaryMessage(bts), nil
	default:
		w.logger.Debugf("<= [DATA] %s", string(bts))
		return NewDataMessage(bts), nil
	}
}

// Write sends a message over the WebSocket connection.
func (w *WsConnection) Write(m Message) error {
	conn := w.current()
	if conn == nil {
		return ErrConnectionClosed
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	_ = conn.SetWriteDeadline(deadline)

	var err error

	switch m.Type() {
	case PingMessage:
		w.logger.Debugln("=> [PING]")
		err = conn.WriteControl(websocket.PingMessage, m.Data(), deadline)
	case PongMessage:
		w.logger.Debugln("=> [PONG]")
		err = conn.WriteControl(websocket.PongMessage, m.Data(), deadline)
	case BinaryMessage:
		w.logger.Debugf("=> [BIN] %d bytes", len(m.Data()))
		err = conn.WriteMessage(websocket.BinaryMessage, m.Data())
	default:
		w.logger.Debugf("=> [DATA] %s", m.Data())
		err = conn.WriteMessage(websocket.TextMessage, m.Data())
	}

	if err != nil {
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}

	return nil
}

// Close terminates the WebSocket connection with the given status code.
// It ensures that all resources related to the connection are cleaned up.
// No close frame is written after a failed read, nor for codes that must not go on the wire.
func (w *WsConnection) Close(code int, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.conn == nil {
		return nil
	}

	if w.broken || reservedCloseCode(code) {
		w.logger.Debugf("releasing connection (%d %s)", code, reason)
		return w.conn.Close()
	}

	w.logger.Debugf("=> [CLOSE] %d %s", code, reason)
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)

	return w.conn.Close()
}

// reservedCloseCode reports codes that only describe a close locally (RFC 6455 section 7.4.1).
func reservedCloseCode(code int) bool {
	switch code {
	case websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure, websocket.CloseTLSHandshake:
		return true
	default:
		return false
	}
}

func (w *WsConnection) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *WsConnection) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
