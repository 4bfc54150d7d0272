package scribews

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// fakeConnection is an in-memory Connection. The test plays the server through push and
// serverClose.
type fakeConnection struct {
	address   string
	openErr   error
	blockOpen bool

	inbound chan Message
	closeC  chan struct{}

	mu          sync.Mutex
	written     []Message
	closed      bool
	closeCode   int
	closeReason string
	remote      *CloseError
}

func newFakeConnection(address string, openErr error) *fakeConnection {
	return &fakeConnection{
		address: address,
		openErr: openErr,
		inbound: make(chan Message, 16),
		closeC:  make(chan struct{}),
	}
}

func (f *fakeConnection) Open(ctx context.Context) error {
	if f.blockOpen {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.openErr
}

func (f *fakeConnection) Read() (Message, error) {
	select {
	case m := <-f.inbound:
		return m, nil
	case <-f.closeC:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.remote != nil {
			return nil, f.remote
		}
		return nil, ErrConnectionClosed
	}
}

func (f *fakeConnection) Write(m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnectionClosed
	}
	f.written = append(f.written, m)
	return nil
}

func (f *fakeConnection) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
	close(f.closeC)
	return nil
}

func (f *fakeConnection) push(data string) {
	f.inbound <- NewDataMessage([]byte(data))
}

func (f *fakeConnection) serverClose(code int, reason string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.remote = &CloseError{Code: code, Reason: reason}
	f.closed = true
	close(f.closeC)
	f.mu.Unlock()
}

func (f *fakeConnection) localClose() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed && f.remote == nil, f.closeCode
}

func (f *fakeConnection) writes() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.written...)
}

// fakeNetwork hands out fakeConnections. Dials listed in failures fail to open.
type fakeNetwork struct {
	mu       sync.Mutex
	dials    int
	failures map[int]error
	blocking bool
	dialed   chan *fakeConnection
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		failures: make(map[int]error),
		dialed:   make(chan *fakeConnection, 32),
	}
}

// failFrom makes every dial from the n-th (1-indexed) on fail with err.
func (n *fakeNetwork) failFrom(dial int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := dial; i < dial+32; i++ {
		n.failures[i] = err
	}
}

func (n *fakeNetwork) factory(address string) Connection {
	n.mu.Lock()
	n.dials++
	conn := newFakeConnection(address, n.failures[n.dials])
	conn.blockOpen = n.blocking
	n.mu.Unlock()

	n.dialed <- conn
	return conn
}

func (n *fakeNetwork) next(t *testing.T) *fakeConnection {
	t.Helper()
	select {
	case conn := <-n.dialed:
		return conn
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a dial")
		return nil
	}
}

func (n *fakeNetwork) assertNoDial(t *testing.T) {
	t.Helper()
	select {
	case conn := <-n.dialed:
		t.Fatalf("unexpected dial to %s", conn.address)
	case <-time.After(50 * time.Millisecond):
	}
}

// manualScheduler records timers instead of running them; tests fire them explicitly.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
	added  chan *manualTimer
}

type manualTimer struct {
	delay time.Duration
	f     func()

	mu      sync.Mutex
	stopped bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{added: make(chan *manualTimer, 32)}
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) stopper {
	t := &manualTimer{delay: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	s.added <- t
	return t
}

func (s *manualScheduler) next(t *testing.T) *manualTimer {
	t.Helper()
	select {
	case timer := <-s.added:
		return timer
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a reconnect to be scheduled")
		return nil
	}
}

func (s *manualScheduler) assertNothingScheduled(t *testing.T) {
	t.Helper()
	select {
	case timer := <-s.added:
		t.Fatalf("unexpected reconnect scheduled after %s", timer.delay)
	case <-time.After(50 * time.Millisecond):
	}
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire runs the callback regardless of Stop, the way a timer that already fired would.
func (t *manualTimer) fire() {
	t.f()
}

type recordedEvent struct {
	kind    string
	conn    *Conn
	payload Payload
	err     error
	code    int
	reason  string
	address string
}

// recordingHandler queues every callback so tests can assert on ordering.
type recordingHandler struct {
	events chan recordedEvent
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{events: make(chan recordedEvent, 64)}
}

func (h *recordingHandler) OnOpen(c *Conn) {
	h.events <- recordedEvent{kind: "open", conn: c}
}

func (h *recordingHandler) OnMessage(c *Conn, p Payload) {
	h.events <- recordedEvent{kind: "message", conn: c, payload: p}
}

func (h *recordingHandler) OnError(c *Conn, err error) {
	h.events <- recordedEvent{kind: "error", conn: c, err: err}
}

func (h *recordingHandler) OnClose(c *Conn, code int, reason string) {
	h.events <- recordedEvent{kind: "close", conn: c, code: code, reason: reason}
}

func (h *recordingHandler) OnReconnectCeiling(address string) {
	h.events <- recordedEvent{kind: "ceiling", address: address}
}

func (h *recordingHandler) next(t *testing.T, kind string) recordedEvent {
	t.Helper()
	select {
	case ev := <-h.events:
		require.Equal(t, kind, ev.kind, "unexpected event %+v", ev)
		return ev
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", kind)
		return recordedEvent{}
	}
}

func (h *recordingHandler) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

type mockHandler struct {
	mock.Mock
}

func (m *mockHandler) OnOpen(c *Conn) {
	m.Called(c)
}

func (m *mockHandler) OnMessage(c *Conn, p Payload) {
	m.Called(c, p)
}

func (m *mockHandler) OnError(c *Conn, err error) {
	m.Called(c, err)
}

func (m *mockHandler) OnClose(c *Conn, code int, reason string) {
	m.Called(c, code, reason)
}

func (m *mockHandler) OnReconnectCeiling(address string) {
	m.Called(address)
}
