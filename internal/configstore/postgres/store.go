package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"

	"solana-token-sniper/internal/configstore"
	"solana-token-sniper/internal/domain"
)

// notifyChannel is the LISTEN/NOTIFY channel carrying "PUT:<id>" and
// "DELETE:<id>" payloads.
const notifyChannel = "sniper_config_changes"

// Schema creates the sniper_configs table. Applied by the operator or by
// tests; the store itself never migrates.
const Schema = `
CREATE TABLE IF NOT EXISTS sniper_configs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    enabled    BOOLEAN NOT NULL DEFAULT FALSE,
    doc        JSONB NOT NULL,
    updated_at BIGINT NOT NULL
);
`

// Store implements configstore.Store on PostgreSQL. The full config is
// stored as a JSONB document with the fields the pipeline filters on
// (name, enabled) lifted into columns.
type Store struct {
	pool   *Pool
	logger *log.Logger
}

// NewStore creates a Postgres-backed config store.
func NewStore(pool *Pool, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// List returns all configurations.
func (s *Store) List(ctx context.Context) ([]*domain.SniperConfig, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM sniper_configs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var out []*domain.SniperConfig
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		cfg, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// Get retrieves one configuration. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (*domain.SniperConfig, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM sniper_configs WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, configstore.ErrNotFound
		}
		return nil, fmt.Errorf("query config %s: %w", id, err)
	}
	return decode(doc)
}

// Put upserts a configuration and notifies listeners.
func (s *Store) Put(ctx context.Context, cfg *domain.SniperConfig) error {
	if cfg == nil || cfg.ID == "" {
		return configstore.ErrInvalidInput
	}

	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sniper_configs (id, name, enabled, doc, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    enabled = EXCLUDED.enabled,
		    doc = EXCLUDED.doc,
		    updated_at = EXCLUDED.updated_at`,
		cfg.ID, cfg.Name, cfg.Enabled, doc, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert config %s: %w", cfg.ID, err)
	}

	return s.notify(ctx, configstore.EventPut, cfg.ID)
}

// Delete removes a configuration and notifies listeners.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sniper_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete config %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return configstore.ErrNotFound
	}
	return s.notify(ctx, configstore.EventDelete, id)
}

// Watch LISTENs on the change channel with a dedicated connection and
// relays notifications until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) (<-chan configstore.Event, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	ch := make(chan configstore.Event, 16)
	go func() {
		defer close(ch)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Printf("[configstore] notification wait failed: %v", err)
				}
				return
			}
			ev, ok := parsePayload(notification.Payload)
			if !ok {
				s.logger.Printf("[configstore] ignoring malformed notification %q", notification.Payload)
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (s *Store) notify(ctx context.Context, t configstore.EventType, id string) error {
	_, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(t)+":"+id)
	if err != nil {
		return fmt.Errorf("notify %s: %w", id, err)
	}
	return nil
}

// parsePayload decodes a "TYPE:id" notification payload.
func parsePayload(payload string) (configstore.Event, bool) {
	typ, id, ok := strings.Cut(payload, ":")
	if !ok || id == "" {
		return configstore.Event{}, false
	}
	switch configstore.EventType(typ) {
	case configstore.EventPut, configstore.EventDelete:
		return configstore.Event{Type: configstore.EventType(typ), ConfigID: id}, true
	}
	return configstore.Event{}, false
}

func decode(doc []byte) (*domain.SniperConfig, error) {
	var cfg domain.SniperConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, fmt.Errorf("decode config document: %w", err)
	}
	return &cfg, nil
}

// Verify interface compliance at compile time.
var _ configstore.Store = (*Store)(nil)
