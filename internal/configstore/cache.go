package configstore

import (
	"context"
	"log"
	"sync"

	"solana-token-sniper/internal/domain"
)

// Cache is the core's read-through view of the config store. It holds a
// full snapshot, refreshed on change notification, so rule evaluation
// never touches the store on the hot path.
type Cache struct {
	store  Store
	logger *log.Logger

	mu      sync.RWMutex
	configs map[string]*domain.SniperConfig
}

// NewCache creates a cache over the store.
func NewCache(store Store, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		store:   store,
		logger:  logger,
		configs: make(map[string]*domain.SniperConfig),
	}
}

// Load performs the initial full snapshot.
func (c *Cache) Load(ctx context.Context) error {
	configs, err := c.store.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.configs = make(map[string]*domain.SniperConfig, len(configs))
	for _, cfg := range configs {
		c.configs[cfg.ID] = cfg
	}
	c.mu.Unlock()

	c.logger.Printf("[configs] loaded %d configurations", len(configs))
	return nil
}

// Run subscribes to the store's change feed and applies events until ctx
// is cancelled. Call after Load.
func (c *Cache) Run(ctx context.Context) error {
	events, err := c.store.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(ctx, ev)
		}
	}
}

func (c *Cache) handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventDelete:
		c.mu.Lock()
		delete(c.configs, ev.ConfigID)
		c.mu.Unlock()
		c.logger.Printf("[configs] removed %s", ev.ConfigID)
	case EventPut:
		cfg, err := c.store.Get(ctx, ev.ConfigID)
		if err != nil {
			c.logger.Printf("[configs] reload %s failed: %v", ev.ConfigID, err)
			return
		}
		c.mu.Lock()
		c.configs[cfg.ID] = cfg
		c.mu.Unlock()
		c.logger.Printf("[configs] reloaded %s (%s)", cfg.ID, cfg.Name)
	}
}

// Enabled returns copies of all enabled configurations.
func (c *Cache) Enabled() []*domain.SniperConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.SniperConfig, 0, len(c.configs))
	for _, cfg := range c.configs {
		if cfg.Enabled {
			out = append(out, cfg.Clone())
		}
	}
	return out
}

// Get returns a copy of one cached configuration.
func (c *Cache) Get(id string) (*domain.SniperConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg, ok := c.configs[id]
	if !ok {
		return nil, false
	}
	return cfg.Clone(), true
}

// Len returns the number of cached configurations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.configs)
}
