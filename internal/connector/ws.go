package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
)

const (
	handshakeTimeout = 10 * time.Second
	confirmTimeout   = 10 * time.Second
	readTimeout      = 90 * time.Second
	writeTimeout     = 10 * time.Second
)

// wsConn is the subset of *websocket.Conn the connector uses.
// Abstracted so tests can drive the receive loop without a network.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// wsDialFunc opens a WebSocket connection to the endpoint.
type wsDialFunc func(ctx context.Context, endpoint string) (wsConn, error)

func gorillaDial(ctx context.Context, endpoint string) (wsConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// WSOptions configures a WSConnector.
type WSOptions struct {
	Name     string
	Endpoint string

	// SubscribeMethod/SubscribeParams form the JSON-RPC subscription request
	// sent after connecting. The confirmation is correlated by request id.
	SubscribeMethod string
	SubscribeParams []interface{}

	// NotifyMethod is the JSON-RPC method name of event notifications.
	NotifyMethod string

	// EventBuffer is the Events channel capacity. Default 256.
	EventBuffer int

	Logger *log.Logger
}

// WSConnector is a streaming source connector over a JSON-RPC style
// WebSocket subscription (pump.fun new-token feed and similar providers).
type WSConnector struct {
	opts   WSOptions
	logger *log.Logger

	dial      wsDialFunc
	sleep     sleepFunc
	requestID atomic.Uint64

	connMu sync.Mutex
	conn   wsConn

	stateMu sync.RWMutex
	state   State

	events      chan domain.RawEvent
	stop        chan struct{}
	reconnectCh chan struct{}
	wg          sync.WaitGroup
	started     atomic.Bool
	stopped     atomic.Bool
}

// NewWSConnector creates a streaming connector. Start must be called before
// events flow.
func NewWSConnector(opts WSOptions) *WSConnector {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	buffer := opts.EventBuffer
	if buffer == 0 {
		buffer = 256
	}
	return &WSConnector{
		opts:        opts,
		logger:      logger,
		dial:        gorillaDial,
		sleep:       sleepCtx,
		state:       StateDisconnected,
		events:      make(chan domain.RawEvent, buffer),
		stop:        make(chan struct{}),
		reconnectCh: make(chan struct{}, 1),
	}
}

// Name identifies the connector.
func (c *WSConnector) Name() string { return c.opts.Name }

// State returns the current lifecycle state.
func (c *WSConnector) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *WSConnector) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	observability.SetConnectorState(c.opts.Name, s.String())
}

// Events returns the raw event output channel. Closed on Stop.
func (c *WSConnector) Events() <-chan domain.RawEvent { return c.events }

// Start launches the connect/receive loop. The first connection attempt is
// made synchronously so obviously bad endpoints fail fast; subsequent
// failures are handled by the backoff loop.
func (c *WSConnector) Start(ctx context.Context) error {
	if c.started.Swap(true) {
		return fmt.Errorf("connector %s: already started", c.opts.Name)
	}
	if c.stopped.Load() {
		return ErrConnectorStopped
	}

	if err := c.connect(ctx); err != nil {
		// Not fatal: the run loop takes over with backoff.
		c.logger.Printf("[%s] initial connect failed: %v", c.opts.Name, err)
		c.setState(StateDisconnected)
	}

	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

// Stop cancels the receive loop and any pending backoff timer, then closes
// the events channel.
func (c *WSConnector) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	close(c.stop)
	c.closeConn()
	c.wg.Wait()
	close(c.events)
	c.setState(StateDisconnected)
}

// Reconnect clears a terminal error state and triggers an immediate attempt.
func (c *WSConnector) Reconnect() {
	select {
	case c.reconnectCh <- struct{}{}:
	default:
	}
}

// connect dials the endpoint, sends the subscription request and waits for
// its confirmation. On success the connector is StateConnected.
func (c *WSConnector) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, err := c.dial(ctx, c.opts.Endpoint)
	if err != nil {
		return err
	}

	if err := c.subscribe(conn); err != nil {
		conn.Close()
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.setState(StateConnected)
	c.logger.Printf("[%s] connected to %s", c.opts.Name, c.opts.Endpoint)
	return nil
}

// subscribe sends the JSON-RPC subscription request and reads frames until
// the confirmation for our request id arrives. Early notifications received
// before the confirmation are forwarded rather than dropped.
func (c *WSConnector) subscribe(conn wsConn) error {
	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  c.opts.SubscribeMethod,
		Params:  c.opts.SubscribeParams,
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(confirmTimeout)
	for {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await subscribe confirmation: %w", err)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil && resp.ID == reqID {
			if resp.Error != nil {
				return fmt.Errorf("subscribe rejected: code=%d %s", resp.Error.Code, resp.Error.Message)
			}
			return nil
		}

		c.handleFrame(message)
	}
}

// run is the long-lived connect/receive loop. It reconnects with exponential
// backoff, settling into StateError after maxReconnectAttempts consecutive
// failures until Reconnect() is called.
func (c *WSConnector) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		if c.isStopping(ctx) {
			return
		}

		if c.State() == StateConnected {
			err := c.receive(ctx)
			if c.isStopping(ctx) {
				return
			}
			c.logger.Printf("[%s] transport failure: %v", c.opts.Name, err)
			c.closeConn()
			c.setState(StateDisconnected)
		}

		if !c.reconnectWithBackoff(ctx) {
			// Terminal error state: wait for an explicit Reconnect.
			c.setState(StateError)
			c.logger.Printf("[%s] giving up after %d attempts, awaiting explicit reconnect", c.opts.Name, maxReconnectAttempts)
			select {
			case <-c.reconnectCh:
				c.logger.Printf("[%s] explicit reconnect requested", c.opts.Name)
				// Explicit reconnects skip the backoff schedule.
				if err := c.connect(ctx); err != nil {
					c.logger.Printf("[%s] reconnect failed: %v", c.opts.Name, err)
					c.setState(StateDisconnected)
				}
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// reconnectWithBackoff tries up to maxReconnectAttempts with 2^k second
// delays. Returns false when all attempts failed.
func (c *WSConnector) reconnectWithBackoff(ctx context.Context) bool {
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		delay := backoffDelay(attempt)
		c.logger.Printf("[%s] reconnect attempt %d/%d in %s", c.opts.Name, attempt+1, maxReconnectAttempts, delay)
		if !c.sleep(ctx, c.stop, delay) {
			return true // stopping; run() exits on next check
		}

		// Drain any queued explicit reconnect so it is not replayed later.
		select {
		case <-c.reconnectCh:
		default:
		}

		if err := c.connect(ctx); err == nil {
			return true
		} else {
			c.logger.Printf("[%s] reconnect attempt %d failed: %v", c.opts.Name, attempt+1, err)
		}
	}
	return false
}

// receive reads frames until the transport fails, sending a heartbeat ping
// every heartbeatInterval. Heartbeat failure closes the connection, which
// surfaces as a read error.
func (c *WSConnector) receive(ctx context.Context) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go c.heartbeatLoop(conn, heartbeatDone)

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(message)

		select {
		case <-c.stop:
			return ErrConnectorStopped
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// heartbeatLoop pings the peer while the current connection is in use.
func (c *WSConnector) heartbeatLoop(conn wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Treated as a transport failure: closing the conn makes
				// the receive loop observe a read error and reconnect.
				c.logger.Printf("[%s] heartbeat failed: %v", c.opts.Name, err)
				conn.Close()
				return
			}
		}
	}
}

// handleFrame decodes one frame and emits notification payloads.
func (c *WSConnector) handleFrame(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		// Malformed frame: drop, keep the pipeline alive.
		return
	}
	if notif.Method != c.opts.NotifyMethod || len(notif.Params) == 0 {
		return
	}

	event := domain.RawEvent{
		Source:     c.opts.Name,
		Payload:    append([]byte(nil), notif.Params...),
		ReceivedAt: time.Now().UnixMilli(),
	}
	select {
	case c.events <- event:
	case <-c.stop:
	}
}

func (c *WSConnector) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}

func (c *WSConnector) isStopping(ctx context.Context) bool {
	select {
	case <-c.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// JSON-RPC wire types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  int64    `json:"result"`
	Error   *wsError `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Verify interface compliance at compile time.
var _ SourceConnector = (*WSConnector)(nil)
