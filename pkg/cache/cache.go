package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/duallang/duallang/pkg/models"
)

// Store persists the flat key -> translation table.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
	Close() error
}

// Cache is a memoizing translation table. Entries never expire; the table is
// only emptied wholesale by Clear.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string

	saveMu sync.Mutex
	store  Store

	hits   atomic.Int64
	misses atomic.Int64
}

// Key serializes an (engine, language, text) tuple to its persisted form.
func Key(engine models.Engine, lang, text string) string {
	return string(engine) + ":" + lang + ":" + text
}

// New creates a Cache backed by store, loading any persisted entries.
// A nil store keeps the table in memory only.
func New(ctx context.Context, store Store) (*Cache, error) {
	c := &Cache{entries: make(map[string]string), store: store}
	if store == nil {
		return c, nil
	}
	entries, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	if entries != nil {
		c.entries = entries
	}
	return c, nil
}

// Get returns the cached translation for text, if any.
func (c *Cache) Get(engine models.Engine, lang, text string) (string, bool) {
	c.mu.RLock()
	v, ok := c.entries[Key(engine, lang, text)]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a translation and writes the whole table to the store.
func (c *Cache) Set(ctx context.Context, engine models.Engine, lang, text, translation string) error {
	c.mu.Lock()
	c.entries[Key(engine, lang, text)] = translation
	c.mu.Unlock()
	return c.persist(ctx)
}

// Clear empties the table and the persisted copy.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()
	return c.persist(ctx)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() models.CacheStats {
	return models.CacheStats{
		Entries: int64(c.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// persist snapshots the table under saveMu so concurrent writers land in order.
func (c *Cache) persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	snapshot := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		log.Printf("[cache] persist %d entries: %v", len(snapshot), err)
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}
