package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
)

// PollOptions configures a PollConnector.
type PollOptions struct {
	Name     string
	Endpoint string // HTTP GET endpoint returning a JSON array of pair objects

	// Interval between polls. Default 10s.
	Interval time.Duration

	// Timeout per request. Default 10s.
	Timeout time.Duration

	// EventBuffer is the Events channel capacity. Default 256.
	EventBuffer int

	Logger *log.Logger
}

// PollConnector periodically fetches a provider's latest-pairs endpoint
// (DexScreener-style) and emits each returned item as a raw event. Poll
// failures feed the same reconnect state machine as streaming transports:
// consecutive failures back off exponentially and eventually settle into
// StateError until Reconnect().
type PollConnector struct {
	opts   PollOptions
	logger *log.Logger
	client *http.Client

	stateMu sync.RWMutex
	state   State

	events      chan domain.RawEvent
	stop        chan struct{}
	reconnectCh chan struct{}
	wg          sync.WaitGroup
	started     atomic.Bool
	stopped     atomic.Bool
}

// NewPollConnector creates a polling connector.
func NewPollConnector(opts PollOptions) *PollConnector {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Interval == 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	buffer := opts.EventBuffer
	if buffer == 0 {
		buffer = 256
	}
	return &PollConnector{
		opts:        opts,
		logger:      logger,
		client:      &http.Client{Timeout: opts.Timeout},
		state:       StateDisconnected,
		events:      make(chan domain.RawEvent, buffer),
		stop:        make(chan struct{}),
		reconnectCh: make(chan struct{}, 1),
	}
}

// Name identifies the connector.
func (p *PollConnector) Name() string { return p.opts.Name }

// State returns the current lifecycle state.
func (p *PollConnector) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

func (p *PollConnector) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
	observability.SetConnectorState(p.opts.Name, s.String())
}

// Events returns the raw event output channel. Closed on Stop.
func (p *PollConnector) Events() <-chan domain.RawEvent { return p.events }

// Start launches the polling loop.
func (p *PollConnector) Start(ctx context.Context) error {
	if p.started.Swap(true) {
		return fmt.Errorf("connector %s: already started", p.opts.Name)
	}
	if p.stopped.Load() {
		return ErrConnectorStopped
	}

	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

// Stop cancels the polling loop and closes the events channel.
func (p *PollConnector) Stop() {
	if p.stopped.Swap(true) {
		return
	}
	close(p.stop)
	p.wg.Wait()
	close(p.events)
	p.setState(StateDisconnected)
}

// Reconnect clears a terminal error state and resumes polling.
func (p *PollConnector) Reconnect() {
	select {
	case p.reconnectCh <- struct{}{}:
	default:
	}
}

// run polls on a fixed interval. A failed poll counts as a transport
// failure; maxReconnectAttempts consecutive failures park the connector in
// StateError.
func (p *PollConnector) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	failures := 0
	p.setState(StateConnected)

	// Poll immediately on start.
	if err := p.pollOnce(ctx); err != nil {
		failures = p.handleFailure(ctx, failures, err)
	}

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.State() != StateConnected {
				continue
			}
			if err := p.pollOnce(ctx); err != nil {
				failures = p.handleFailure(ctx, failures, err)
				if failures < 0 {
					return // stopping
				}
			} else {
				failures = 0
			}
		case <-p.reconnectCh:
			if p.State() == StateError {
				p.logger.Printf("[%s] explicit reconnect requested", p.opts.Name)
				failures = 0
				p.setState(StateConnected)
			}
		}
	}
}

// handleFailure applies the backoff schedule in-line: 2^k seconds per
// consecutive failure, terminal error after maxReconnectAttempts. Returns
// the updated failure count, or -1 when stopping.
func (p *PollConnector) handleFailure(ctx context.Context, failures int, err error) int {
	p.logger.Printf("[%s] poll failed: %v", p.opts.Name, err)
	failures++
	if failures >= maxReconnectAttempts {
		p.setState(StateError)
		p.logger.Printf("[%s] giving up after %d failures, awaiting explicit reconnect", p.opts.Name, failures)
		return failures
	}

	p.setState(StateConnecting)
	if !sleepCtx(ctx, p.stop, backoffDelay(failures-1)) {
		return -1
	}
	p.setState(StateConnected)
	return failures
}

// pollOnce fetches the endpoint and emits each item.
func (p *PollConnector) pollOnce(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.opts.Endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		// Some providers wrap the list in an envelope.
		var envelope struct {
			Pairs []json.RawMessage `json:"pairs"`
		}
		if err2 := json.Unmarshal(body, &envelope); err2 != nil || envelope.Pairs == nil {
			return fmt.Errorf("decode poll response: %w", err)
		}
		items = envelope.Pairs
	}

	now := time.Now().UnixMilli()
	for _, item := range items {
		event := domain.RawEvent{
			Source:     p.opts.Name,
			Payload:    append([]byte(nil), item...),
			ReceivedAt: now,
		}
		select {
		case p.events <- event:
		case <-p.stop:
			return nil
		}
	}
	return nil
}

// Verify interface compliance at compile time.
var _ SourceConnector = (*PollConnector)(nil)
