// Package learned keeps the mapping from a requested theme display name to
// the name the native catalog actually reports for it.
package learned

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultSize is the number of mappings held in memory.
const DefaultSize = 256

// ErrNotLearned is returned when forgetting a name with no mapping.
var ErrNotLearned = errors.New("no learned name")

// Store persists learned names between runs.
type Store interface {
	LearnedNames() map[string]string
	SetLearnedNames(names map[string]string) error
}

// Entry is one learned mapping.
type Entry struct {
	Requested string
	Actual    string
}

// Cache is safe for concurrent use.
type Cache struct {
	table  *lru.Cache[string, string]
	store  Store
	size   int
	logger *zap.Logger

	mu       sync.Mutex
	dirty    bool
	removing bool
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	size   int
	logger *zap.Logger
}

// WithSize overrides DefaultSize.
func WithSize(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a cache seeded from store. A nil store keeps the cache in
// memory only.
func New(store Store, opts ...Option) (*Cache, error) {
	o := options{size: DefaultSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache{store: store, size: o.size, logger: o.logger}
	table, err := lru.NewWithEvict[string, string](o.size, c.evicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create learned-name table: %w", err)
	}
	c.table = table

	if store != nil {
		for requested, actual := range store.LearnedNames() {
			if requested != "" && requested != actual {
				table.Add(requested, actual)
			}
		}
	}
	return c, nil
}

// Lookup returns the learned name for requested, or requested itself.
func (c *Cache) Lookup(requested string) string {
	if actual, ok := c.table.Get(requested); ok {
		return actual
	}
	return requested
}

// Record upserts a mapping. Recording a name as itself removes any stale
// entry for it.
func (c *Cache) Record(requested, actual string) {
	if requested == "" || actual == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if requested == actual {
		if c.remove(requested) {
			c.dirty = true
		}
		return
	}

	if prev, ok := c.table.Peek(requested); ok && prev == actual {
		return
	}
	c.table.Add(requested, actual)
	c.dirty = true
	c.logger.Info("learned theme name", zap.String("requested", requested), zap.String("actual", actual))
}

// Forget drops the mapping for requested and reports whether one existed.
func (c *Cache) Forget(requested string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remove(requested) {
		c.dirty = true
		return true
	}
	return false
}

// remove deletes requested without reporting it as an eviction. The caller
// holds c.mu.
func (c *Cache) remove(requested string) bool {
	c.removing = true
	defer func() { c.removing = false }()
	return c.table.Remove(requested)
}

// evicted runs synchronously from table writes.
func (c *Cache) evicted(requested, actual string) {
	if c.removing {
		return
	}
	c.dirty = true
	c.logger.Warn("learned theme name evicted",
		zap.String("requested", requested),
		zap.String("actual", actual),
		zap.Int("capacity", c.size),
	)
}

// Entries returns all mappings sorted by requested name.
func (c *Cache) Entries() []Entry {
	keys := c.table.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.table.Peek(k); ok {
			entries = append(entries, Entry{Requested: k, Actual: v})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Requested < entries[j].Requested
	})
	return entries
}

// Len returns the number of mappings.
func (c *Cache) Len() int {
	return c.table.Len()
}

// Flush writes the table to the store when it changed since the last flush.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty || c.store == nil {
		return nil
	}

	names := make(map[string]string, c.table.Len())
	for _, k := range c.table.Keys() {
		if v, ok := c.table.Peek(k); ok {
			names[k] = v
		}
	}

	if err := c.store.SetLearnedNames(names); err != nil {
		return fmt.Errorf("failed to persist learned names: %w", err)
	}
	c.dirty = false
	return nil
}
