package cache

import (
	"context"
	"sync"
	"time"

	"github.com/snsphoto/gallery-api/internal/gallery"
)

// Cache is a short-TTL read path accelerator for category documents.
// Entries are superseded by any successful write to the same category; the
// stale read exists only so the public gallery can degrade to slightly old
// data when a fresh fetch fails.
type Cache interface {
	// Get returns the snapshot for key while it is still fresh.
	Get(ctx context.Context, key string) (*gallery.CollectionDocument, bool)
	// GetStale returns the most recent snapshot regardless of TTL.
	GetStale(ctx context.Context, key string) (*gallery.CollectionDocument, bool)
	Put(ctx context.Context, key string, doc *gallery.CollectionDocument)
	Invalidate(ctx context.Context, key string)
	InvalidateAll(ctx context.Context)
}

type entry struct {
	doc        *gallery.CollectionDocument
	capturedAt time.Time
}

// MemoryCache is the default process-local implementation. Safe for
// concurrent use; writes replace entries as a unit under the lock so no
// reader ever observes a partial entry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     gallery.Clock
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

// WithClock overrides the cache clock (tests).
func (c *MemoryCache) WithClock(clock gallery.Clock) *MemoryCache {
	c.now = clock
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*gallery.CollectionDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.capturedAt) >= c.ttl {
		return nil, false
	}
	return e.doc, true
}

func (c *MemoryCache) GetStale(ctx context.Context, key string) (*gallery.CollectionDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

func (c *MemoryCache) Put(ctx context.Context, key string, doc *gallery.CollectionDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{doc: doc, capturedAt: c.now()}
}

func (c *MemoryCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
