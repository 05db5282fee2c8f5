// Package connector provides source connectors that feed raw token events
// into the pipeline. Each connector owns its transport and reconnect state
// machine; the pipeline consumes a single merged stream.
package connector

import (
	"context"
	"errors"
	"time"

	"solana-token-sniper/internal/domain"
)

// State represents the connector lifecycle state.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	// StateError is terminal: entered after maxReconnectAttempts consecutive
	// failures. Only an explicit Reconnect() leaves it.
	StateError State = "ERROR"
)

// String returns the string representation of State.
func (s State) String() string {
	return string(s)
}

const (
	// maxReconnectAttempts caps automatic reconnection. Beyond it the
	// connector settles into StateError until Reconnect() is called.
	maxReconnectAttempts = 5

	// heartbeatInterval is how often a keepalive is sent while connected.
	// A heartbeat send failure is treated as a transport failure.
	heartbeatInterval = 30 * time.Second
)

// ErrConnectorStopped is returned when an operation races with Stop().
var ErrConnectorStopped = errors.New("connector stopped")

// SourceConnector is one independent real-time source of raw token events.
// Start is non-blocking: the receive loop runs until Stop. Events returns
// the connector's output channel; it is closed on Stop.
type SourceConnector interface {
	// Name identifies the connector, e.g. "pumpfun-ws".
	Name() string

	// Start opens the transport and begins emitting events.
	Start(ctx context.Context) error

	// Stop cancels the receive loop and any pending backoff timer.
	// Deterministic: when Stop returns, no further events are emitted.
	Stop()

	// Reconnect clears a terminal error state and retries immediately.
	Reconnect()

	// State returns the current lifecycle state.
	State() State

	// Events returns the raw event output channel.
	Events() <-chan domain.RawEvent
}

// backoffDelay returns the reconnect delay before attempt k (zero-based):
// 2^k seconds, so 1s, 2s, 4s, 8s, 16s.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// sleepFunc is the interruptible wait used between reconnect attempts.
// Replaceable so tests can drive the backoff schedule without real delays.
type sleepFunc func(ctx context.Context, stop <-chan struct{}, d time.Duration) bool

// sleepCtx waits for d or until the context is done or stop is closed.
// Returns false if interrupted.
func sleepCtx(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}
