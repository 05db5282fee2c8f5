// Package repository holds the single mutable point of truth for tracked
// trading pairs: an ordered, capacity-bounded, pausable in-memory store.
package repository

import (
	"errors"
	"sync"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
)

// DefaultCapacity bounds the number of tracked pairs. Insertion is at the
// head; overflow evicts strictly FIFO at the tail.
const DefaultCapacity = 200

var (
	// ErrNotFound is returned when a requested pair is not tracked.
	ErrNotFound = errors.New("pair not found")

	// ErrPaused is returned for mutations while the repository is paused.
	// Paused mutations are dropped, never queued.
	ErrPaused = errors.New("repository paused")

	// ErrDuplicate is returned when inserting an already-tracked mint.
	ErrDuplicate = errors.New("pair already tracked")
)

// pauseState is the explicit pause state machine. Only DialogClosed can
// clear pausedByDialog; Resume is refused while the dialog latch is held.
type pauseState int

const (
	running pauseState = iota
	pausedByHover
	pausedByDialog
)

// PairRepository is a newest-first, capacity-bounded store keyed by mint.
// Single-writer, many-reader: all mutations serialize on one lock, readers
// receive deep copies.
type PairRepository struct {
	mu       sync.RWMutex
	capacity int
	byMint   map[string]*domain.TradingPair
	order    []string // mint ids, newest first
	pause    pauseState
}

// New creates a repository with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *PairRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PairRepository{
		capacity: capacity,
		byMint:   make(map[string]*domain.TradingPair, capacity),
	}
}

// Insert adds a pair at the head, evicting the tail on overflow.
// Returns ErrPaused while paused and ErrDuplicate for tracked mints.
func (r *PairRepository) Insert(pair *domain.TradingPair) error {
	if pair == nil || pair.Mint == "" {
		return ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pause != running {
		return ErrPaused
	}
	if _, exists := r.byMint[pair.Mint]; exists {
		return ErrDuplicate
	}

	r.byMint[pair.Mint] = pair.Clone()
	r.order = append([]string{pair.Mint}, r.order...)

	if len(r.order) > r.capacity {
		tail := r.order[len(r.order)-1]
		r.order = r.order[:len(r.order)-1]
		delete(r.byMint, tail)
		observability.DefaultMetrics.PairsEvicted.Inc()
	}
	return nil
}

// Update applies fn to the tracked pair in place. The mutation is dropped
// with ErrPaused while paused and ErrNotFound for evicted/unknown mints.
func (r *PairRepository) Update(mint string, fn func(*domain.TradingPair)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pause != running {
		return ErrPaused
	}
	pair, ok := r.byMint[mint]
	if !ok {
		return ErrNotFound
	}
	fn(pair)
	return nil
}

// Get returns a copy of the tracked pair.
func (r *PairRepository) Get(mint string) (*domain.TradingPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, ok := r.byMint[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return pair.Clone(), nil
}

// Len returns the number of tracked pairs.
func (r *PairRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Capacity returns the fixed capacity.
func (r *PairRepository) Capacity() int { return r.capacity }

// Pause suspends mutations (hover pause). No-op while the dialog latch is
// held: the dialog state already implies paused.
func (r *PairRepository) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pause == running {
		r.pause = pausedByHover
	}
}

// Resume lifts a hover pause. Refused while the dialog latch is held;
// only DialogClosed clears that state.
func (r *PairRepository) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pause == pausedByHover {
		r.pause = running
	}
}

// DialogOpened latches the repository paused until DialogClosed.
func (r *PairRepository) DialogOpened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pause = pausedByDialog
}

// DialogClosed releases the dialog latch and resumes.
func (r *PairRepository) DialogClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pause == pausedByDialog {
		r.pause = running
	}
}

// Paused reports whether mutations are currently suppressed.
func (r *PairRepository) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pause != running
}
