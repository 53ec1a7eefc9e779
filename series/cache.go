package series

import (
	"slices"
	"sync"
	"time"

	"github.com/cyp0633/taskrecur/storage"
)

// CacheConfig holds configuration for the template cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Entry limit before LRU eviction; zero means unbounded
	CleanupInterval time.Duration // How often expired entries are swept
}

// DefaultCacheConfig provides sensible defaults for template caching
var DefaultCacheConfig = CacheConfig{
	TTL:             10 * time.Minute,
	MaxEntries:      500,
	CleanupInterval: 5 * time.Minute,
}

// CacheStats describes the cache contents and how well it is doing.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int
	Misses         int
	Evictions      int
}

type templateEntry struct {
	tmpl     *storage.Task
	expires  time.Time
	lastUsed time.Time
}

// TemplateCache keeps recently used series templates so that generating the
// next instance does not need a storage round trip for the template. Entries
// are copies; callers never share a *storage.Task with the cache.
type TemplateCache struct {
	cfg CacheConfig
	now func() time.Time

	mu        sync.RWMutex
	entries   map[string]templateEntry
	hits      int
	misses    int
	evictions int

	stop      chan struct{}
	closeOnce sync.Once
}

// NewTemplateCache creates a template cache and starts its sweeper. Call
// Close to stop it.
func NewTemplateCache(cfg CacheConfig) *TemplateCache {
	return newTemplateCache(cfg, time.Now)
}

func newTemplateCache(cfg CacheConfig, now func() time.Time) *TemplateCache {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	c := &TemplateCache{
		cfg:     cfg,
		now:     now,
		entries: make(map[string]templateEntry),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns a copy of the template cached under id. Expired entries are
// dropped on the way.
func (c *TemplateCache) Get(id string) (*storage.Task, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if ok && now.After(e.expires) {
		delete(c.entries, id)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	e.lastUsed = now
	c.entries[id] = e
	return e.tmpl.Clone(), true
}

// Set caches a copy of tmpl under its id. Templates without an id are
// ignored.
func (c *TemplateCache) Set(tmpl *storage.Task) {
	if tmpl == nil || tmpl.ID == "" {
		return
	}
	now := c.now()
	e := templateEntry{tmpl: tmpl.Clone(), expires: now.Add(c.cfg.TTL), lastUsed: now}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[tmpl.ID] = e
	if c.cfg.MaxEntries > 0 && len(c.entries) > c.cfg.MaxEntries {
		c.dropExpired(now)
		c.evictLRU()
	}
}

// Invalidate drops id from the cache.
func (c *TemplateCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// dropExpired must be called with mu held.
func (c *TemplateCache) dropExpired(now time.Time) {
	for id, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, id)
		}
	}
}

// evictLRU removes the least recently used entries until the limit holds.
// mu must be held.
func (c *TemplateCache) evictLRU() {
	over := len(c.entries) - c.cfg.MaxEntries
	if over <= 0 {
		return
	}
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return c.entries[a].lastUsed.Compare(c.entries[b].lastUsed)
	})
	for _, id := range ids[:over] {
		delete(c.entries, id)
	}
	c.evictions += over
}

func (c *TemplateCache) sweep() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			c.dropExpired(now)
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the sweeper and empties the cache. It is safe to call more
// than once.
func (c *TemplateCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.mu.Lock()
		clear(c.entries)
		c.mu.Unlock()
	})
}

// Stats reports the cache contents and its hit counters.
func (c *TemplateCache) Stats() CacheStats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		TotalEntries: len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
	}
	for _, e := range c.entries {
		if now.After(e.expires) {
			stats.ExpiredEntries++
		}
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}
