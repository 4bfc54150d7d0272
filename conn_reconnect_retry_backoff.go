package scribews

import (
	"math"
	"strings"
	"time"
)

// BackoffCalculator returns how long to wait before reconnect attempt attempts+1.
type BackoffCalculator func(attempts int) time.Duration

type (
	stopper interface {
		Stop() bool
	}

	scheduler interface {
		AfterFunc(d time.Duration, f func()) stopper
	}

	timeScheduler struct{}

	// reconnectTimer is the registry token of a scheduled reconnect. A reconnect only runs while
	// its token is still the one stored for the address.
	reconnectTimer struct {
		timer stopper
	}
)

func (timeScheduler) AfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// ExponentialBackoff waits base * 2^attempts.
func ExponentialBackoff(base time.Duration) BackoffCalculator {
	return func(attempts int) time.Duration {
		return time.Duration(float64(base) * math.Pow(2.0, float64(attempts)))
	}
}

// handleReconnect runs after an unexpected close of conn. It either schedules the next attempt or,
// once the ceiling is reached, drops the address and notifies the handler.
func (c *Client) handleReconnect(conn *Conn) {
	addr := conn.address

	c.mu.Lock()
	if c.conns[addr] != conn {
		// Disconnected or replaced meanwhile.
		c.mu.Unlock()
		return
	}

	attempts := c.attempts[addr]

	if attempts >= c.config.MaxReconnectAttempts {
		c.forgetLocked(addr)
		c.mu.Unlock()

		conn.logger.Errorf("maximum reconnect attempts reached (%d)", attempts)
		conn.handler.OnReconnectCeiling(addr)
		c.emitter.Emit(EventReconnectCeiling, Event{
			Type:    EventReconnectCeiling,
			Address: addr,
			ConnID:  conn.id,
			Attempt: attempts,
			Err:     ErrReconnectCeiling,
		})
		return
	}

	delay := c.backoff(attempts)
	token := &reconnectTimer{}
	c.timers[addr] = token
	// The lock is held until the token is armed, so the callback always sees it.
	token.timer = c.scheduler.AfterFunc(delay, func() {
		c.reconnect(conn, attempts+1, delay, token)
	})
	c.mu.Unlock()

	conn.logger.Infof(
		"reconnecting in %s (attempt %d/%d)",
		delay, attempts+1, c.config.MaxReconnectAttempts,
	)
}

func (c *Client) reconnect(prev *Conn, attempt int, delay time.Duration, token *reconnectTimer) {
	target := c.reconnectAddress(prev.address)

	// The token check and the registration of the new handle share one critical section, so a
	// concurrent Disconnect either cancels the token or finds the new handle.
	c.mu.Lock()
	if c.timers[prev.address] != token {
		c.mu.Unlock()
		return
	}
	delete(c.timers, prev.address)
	if target != prev.address {
		delete(c.conns, prev.address)
		delete(c.attempts, prev.address)
	}
	c.attempts[target] = attempt
	conn, replaced := c.registerLocked(target, prev.handler)
	c.mu.Unlock()

	if replaced != nil && replaced != prev {
		replaced.closeIntentionally()
	}

	c.emitter.Emit(EventReconnect, Event{
		Type:    EventReconnect,
		Address: target,
		ConnID:  prev.id,
		Attempt: attempt,
		Delay:   delay,
	})

	go conn.run()
}

// reconnectAddress re-derives the address to dial on reconnect. Addresses on the base origin are
// reduced to their endpoint and resolved again, so gateway prefixes never pile up. Foreign
// addresses are dialed as they are.
func (c *Client) reconnectAddress(address string) string {
	if !sameOrigin(address, c.config.BaseAddress) {
		return address
	}

	endpoint := address
	if base := strings.TrimRight(c.config.BaseAddress, "/"); strings.HasPrefix(address, base) {
		endpoint = strings.TrimPrefix(address, base)
	}

	resolved, err := ResolveAddress(
		c.config.BaseAddress,
		EndpointFromAddress(endpoint, c.config.GatewayPrefix),
	)
	if err != nil {
		return address
	}

	return resolved
}
