// Package memory is an in-memory implementation of configstore.Store,
// used in tests and single-process runs.
package memory

import (
	"context"
	"sync"

	"solana-token-sniper/internal/configstore"
	"solana-token-sniper/internal/domain"
)

// Store is an in-memory config store with change notifications.
type Store struct {
	mu       sync.RWMutex
	configs  map[string]*domain.SniperConfig
	watchers []chan configstore.Event
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{configs: make(map[string]*domain.SniperConfig)}
}

// List returns copies of all configurations.
func (s *Store) List(_ context.Context) ([]*domain.SniperConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.SniperConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg.Clone())
	}
	return out, nil
}

// Get retrieves one configuration.
func (s *Store) Get(_ context.Context, id string) (*domain.SniperConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[id]
	if !ok {
		return nil, configstore.ErrNotFound
	}
	return cfg.Clone(), nil
}

// Put inserts or replaces a configuration and notifies watchers.
func (s *Store) Put(_ context.Context, cfg *domain.SniperConfig) error {
	if cfg == nil || cfg.ID == "" {
		return configstore.ErrInvalidInput
	}

	s.mu.Lock()
	s.configs[cfg.ID] = cfg.Clone()
	s.mu.Unlock()

	s.notify(configstore.Event{Type: configstore.EventPut, ConfigID: cfg.ID})
	return nil
}

// Delete removes a configuration and notifies watchers.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.configs[id]
	if ok {
		delete(s.configs, id)
	}
	s.mu.Unlock()

	if !ok {
		return configstore.ErrNotFound
	}
	s.notify(configstore.Event{Type: configstore.EventDelete, ConfigID: id})
	return nil
}

// Watch returns a change event channel, closed when ctx is cancelled.
func (s *Store) Watch(ctx context.Context) (<-chan configstore.Event, error) {
	ch := make(chan configstore.Event, 16)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *Store) notify(ev configstore.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		select {
		case w <- ev:
		default:
			// Slow watcher: drop rather than block a writer.
		}
	}
}

// Verify interface compliance at compile time.
var _ configstore.Store = (*Store)(nil)
