package scribews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsTestServer upgrades every request and hands the server side of the socket to handler.
func wsTestServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestWsConnection(address string, header http.Header) *WsConnection {
	return NewWebsocketConnection(
		address,
		&websocket.Dialer{HandshakeTimeout: time.Second},
		NewOpenConnectionParamsRepo(NopLogger(), StaticHeaderParams(header)),
		NopLogger(),
		ErrorAdapters{},
	)
}

func TestWsConnection_ReadWrite(t *testing.T) {
	srv := wsTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	})

	ws := newTestWsConnection(wsURL(srv)+"/ws", nil)
	require.NoError(t, ws.Open(context.Background()))
	defer ws.Close(CloseIntentional, "")

	require.NoError(t, ws.Write(NewDataMessage([]byte(`{"type":"hello"}`))))
	m, err := ws.Read()
	require.NoError(t, err)
	assert.Equal(t, DataMessage, m.Type())
	assert.Equal(t, `{"type":"hello"}`, string(m.Data()))

	require.NoError(t, ws.Write(NewBinaryMessage([]byte{0xCA, 0xFE})))
	m, err = ws.Read()
	require.NoError(t, err)
	assert.Equal(t, BinaryMessage, m.Type())
	assert.Equal(t, []byte{0xCA, 0xFE}, m.Data())
}

func TestWsConnection_SendsHeaders(t *testing.T) {
	got := make(chan string, 1)
	srv := wsTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		got <- r.Header.Get("Authorization")
	})

	ws := newTestWsConnection(wsURL(srv), http.Header{"Authorization": []string{"Bearer t0k3n"}})
	require.NoError(t, ws.Open(context.Background()))
	defer ws.Close(CloseIntentional, "")

	select {
	case auth := <-got:
		assert.Equal(t, "Bearer t0k3n", auth)
	case <-time.After(waitTimeout):
		t.Fatal("server saw no request")
	}
}

func TestWsConnection_PeerCloseCode(t *testing.T) {
	srv := wsTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "busy"),
			time.Now().Add(time.Second),
		)
		// Wait for the client to go away.
		_, _, _ = conn.ReadMessage()
	})

	ws := newTestWsConnection(wsURL(srv), nil)
	require.NoError(t, ws.Open(context.Background()))
	defer ws.Close(CloseIntentional, "")

	_, err := ws.Read()
	require.Error(t, err)

	var ce *CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseTryAgainLater, ce.Code)
	assert.Equal(t, "busy", ce.Reason)
	assert.False(t, ce.Intentional())
}

func TestWsConnection_CloseSendsCode(t *testing.T) {
	codes := make(chan int, 1)
	srv := wsTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		var ce *websocket.CloseError
		if assert.ErrorAs(t, err, &ce) {
			codes <- ce.Code
		}
	})

	ws := newTestWsConnection(wsURL(srv), nil)
	require.NoError(t, ws.Open(context.Background()))
	require.NoError(t, ws.Close(CloseIntentional, ""))
	require.NoError(t, ws.Close(CloseIntentional, ""), "second close is a no-op")

	select {
	case code := <-codes:
		assert.Equal(t, CloseIntentional, code)
	case <-time.After(waitTimeout):
		t.Fatal("server saw no close frame")
	}

	_, err := ws.Read()
	assert.Error(t, err)
	assert.ErrorIs(t, ws.Write(NewDataMessage([]byte("{}"))), ErrConnectionClosed)
}

func TestWsConnection_AbnormalCloseWritesNoFrame(t *testing.T) {
	errs := make(chan error, 1)
	srv := wsTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		errs <- err
	})

	ws := newTestWsConnection(wsURL(srv), nil)
	require.NoError(t, ws.Open(context.Background()))
	require.NoError(t, ws.Close(CloseAbnormal, "gone"))

	select {
	case err := <-errs:
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "gone", "the reason never reached the peer")
	case <-time.After(waitTimeout):
		t.Fatal("server read did not return")
	}
}

func TestReservedCloseCode(t *testing.T) {
	for code, reserved := range map[int]bool{
		websocket.CloseNormalClosure:    false,
		websocket.CloseTryAgainLater:    false,
		4000:                            false,
		websocket.CloseNoStatusReceived: true,
		websocket.CloseAbnormalClosure:  true,
		websocket.CloseTLSHandshake:     true,
	} {
		assert.Equal(t, reserved, reservedCloseCode(code), "code %d", code)
	}
}

func TestWsConnection_DialErrors(t *testing.T) {
	limited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer limited.Close()

	err := newTestWsConnection(wsURL(limited), nil).Open(context.Background())
	assert.ErrorIs(t, err, ErrRateLimit)

	refused := httptest.NewServer(http.NotFoundHandler())
	addr := wsURL(refused)
	refused.Close()

	err = newTestWsConnection(addr, nil).Open(context.Background())
	assert.ErrorIs(t, err, ErrCannotConnect)
}

func TestWsConnection_CustomDialErrorAdapter(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	custom := ErrTerminated
	ws := NewWebsocketConnection(
		wsURL(srv),
		websocket.DefaultDialer,
		NewOpenConnectionParamsRepo(NopLogger(), StaticHeaderParams(nil)),
		NopLogger(),
		ErrorAdapters{OnDial: func(_ *websocket.Conn, resp *http.Response, err error) error {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return custom
			}
			return err
		}},
	)

	assert.ErrorIs(t, ws.Open(context.Background()), custom)
}

func TestClient_OverWebsocket(t *testing.T) {
	srv := wsTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"info","path":"`+r.URL.Path+`"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	client := New(Config{BaseAddress: wsURL(srv), MaxReconnectAttempts: 0})
	h := newRecordingHandler()

	client.Connect("/ws", h)
	h.next(t, "open")

	ev := h.next(t, "message")
	assert.Equal(t, "info", ev.payload.Kind())
	assert.Contains(t, string(ev.payload.Raw()), `"path":"/ws"`)

	ev = h.next(t, "error")
	assert.ErrorIs(t, ev.err, ErrDecode)

	client.Disconnect("/ws")
	assert.Equal(t, CloseIntentional, h.next(t, "close").code)
	h.assertQuiet(t)
}
