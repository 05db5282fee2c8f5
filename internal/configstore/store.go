// Package configstore defines the external SniperConfig store boundary.
// The core never owns config persistence: it reads through a cache that is
// refreshed on change notifications.
package configstore

import (
	"context"
	"errors"

	"solana-token-sniper/internal/domain"
)

var (
	// ErrNotFound is returned when a requested config does not exist.
	ErrNotFound = errors.New("config not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid config")
)

// EventType classifies a change notification.
type EventType string

const (
	EventPut    EventType = "PUT"
	EventDelete EventType = "DELETE"
)

// Event is one config change notification.
type Event struct {
	Type     EventType
	ConfigID string
}

// Store provides CRUD over sniper configurations plus a change feed.
type Store interface {
	// List returns all configurations.
	List(ctx context.Context) ([]*domain.SniperConfig, error)

	// Get retrieves one configuration. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.SniperConfig, error)

	// Put inserts or replaces a configuration.
	Put(ctx context.Context, cfg *domain.SniperConfig) error

	// Delete removes a configuration. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Watch returns a channel of change events. The channel closes when
	// ctx is cancelled.
	Watch(ctx context.Context) (<-chan Event, error)
}
