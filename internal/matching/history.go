package matching

import (
	"sync"
	"time"

	"solana-token-sniper/internal/domain"
)

// DefaultHistorySize bounds the recent-match window.
const DefaultHistorySize = 100

// History is a bounded, most-recent-first window of emitted matches with a
// per-day counter.
type History struct {
	mu      sync.RWMutex
	size    int
	matches []*domain.TokenMatch // newest first

	day      string // UTC day the counter refers to
	dayCount int
}

// NewHistory creates a history window (DefaultHistorySize if size <= 0).
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Record prepends a match, trimming the window, and bumps today's counter.
func (h *History) Record(m *domain.TokenMatch) {
	day := time.UnixMilli(m.Timestamp).UTC().Format("2006-01-02")

	h.mu.Lock()
	defer h.mu.Unlock()

	h.matches = append([]*domain.TokenMatch{m}, h.matches...)
	if len(h.matches) > h.size {
		h.matches = h.matches[:h.size]
	}

	if day != h.day {
		h.day = day
		h.dayCount = 0
	}
	h.dayCount++
}

// Recent returns the window, newest first.
func (h *History) Recent() []*domain.TokenMatch {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*domain.TokenMatch, len(h.matches))
	copy(out, h.matches)
	return out
}

// TodayCount returns the number of matches recorded for the given UTC day.
func (h *History) TodayCount(now time.Time) int {
	day := now.UTC().Format("2006-01-02")

	h.mu.RLock()
	defer h.mu.RUnlock()
	if day != h.day {
		return 0
	}
	return h.dayCount
}
