package normalize

import "sync"

// Dedup defaults. Once the seen set exceeds the ceiling it is trimmed to
// the most-recent keep entries by insertion order.
const (
	DefaultDedupCeiling = 1000
	DefaultDedupKeep    = 500
)

// Deduplicator is a bounded seen-id set guaranteeing at-most-once downstream
// delivery. MarkSeen inserts the id before the caller schedules any further
// work for it, which closes the race between two connectors reporting the
// same mint concurrently.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, oldest first
	ceiling int
	keep    int
}

// NewDeduplicator creates a deduplicator with the given bounds. Zero values
// fall back to the defaults.
func NewDeduplicator(ceiling, keep int) *Deduplicator {
	if ceiling <= 0 {
		ceiling = DefaultDedupCeiling
	}
	if keep <= 0 || keep > ceiling {
		keep = DefaultDedupKeep
	}
	return &Deduplicator{
		seen:    make(map[string]struct{}, ceiling),
		ceiling: ceiling,
		keep:    keep,
	}
}

// MarkSeen records the id and reports whether it was seen for the first
// time. The insertion happens-before the caller's follow-on scheduling.
func (d *Deduplicator) MarkSeen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)

	if len(d.order) > d.ceiling {
		d.trimLocked()
	}
	return true
}

// Seen reports whether the id has been recorded.
func (d *Deduplicator) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

// Len returns the current set size.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// trimLocked drops the oldest entries, keeping the most-recent keep ids.
func (d *Deduplicator) trimLocked() {
	drop := len(d.order) - d.keep
	for _, id := range d.order[:drop] {
		delete(d.seen, id)
	}
	d.order = append(d.order[:0], d.order[drop:]...)
}
