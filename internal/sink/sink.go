// Package sink delivers pipeline outputs (trade results) to external
// collaborators. The core keeps only a small bounded recent window for its
// own telemetry; long-term persistence belongs to the sink implementations.
package sink

import (
	"context"
	"sync"

	"solana-token-sniper/internal/domain"
)

// ResultSink receives trade submission outcomes.
type ResultSink interface {
	// Publish hands one result to the sink. Errors are the sink's own
	// (e.g. storage failure); the pipeline logs and continues.
	Publish(ctx context.Context, result *domain.TransactionResult) error
}

// DefaultWindowSize bounds the in-core recent-result window.
const DefaultWindowSize = 200

// Window is the in-core bounded recent-result sink, most recent first.
// It backs the aggregate statistics surface.
type Window struct {
	mu      sync.RWMutex
	size    int
	results []*domain.TransactionResult
}

// NewWindow creates a bounded window (DefaultWindowSize if size <= 0).
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{size: size}
}

// Publish prepends the result, trimming the window.
func (w *Window) Publish(_ context.Context, result *domain.TransactionResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.results = append([]*domain.TransactionResult{result}, w.results...)
	if len(w.results) > w.size {
		w.results = w.results[:w.size]
	}
	return nil
}

// Recent returns the window, newest first.
func (w *Window) Recent() []*domain.TransactionResult {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*domain.TransactionResult, len(w.results))
	copy(out, w.results)
	return out
}

// Fanout publishes to several sinks in order, collecting the first error.
type Fanout []ResultSink

// Publish delivers to every sink; a failing sink does not stop the rest.
func (f Fanout) Publish(ctx context.Context, result *domain.TransactionResult) error {
	var firstErr error
	for _, s := range f {
		if err := s.Publish(ctx, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Verify interface compliance at compile time.
var (
	_ ResultSink = (*Window)(nil)
	_ ResultSink = (Fanout)(nil)
)
