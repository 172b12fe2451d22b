package service

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eidoscope/eidoscope/internal/model"
)

// DefaultChecklistTTL is how long a fetched checklist stays valid.
const DefaultChecklistTTL = 24 * time.Hour

// ChecklistSource fetches the full canonical taxon list from the registry.
// *Client implements it.
type ChecklistSource interface {
	FetchChecklist(ctx context.Context) ([]model.ChecklistEntry, error)
}

// ChecklistStore is an optional warm copy of the checklist, loaded before
// hitting the network and refreshed after a successful fetch.
// *store.ChecklistStore implements it.
type ChecklistStore interface {
	Load(ctx context.Context) ([]model.ChecklistEntry, error)
	Save(ctx context.Context, entries []model.ChecklistEntry) error
}

// ChecklistCache memoizes the canonical name -> taxon id mapping with a TTL.
// Concurrent cold-cache callers share one fetch; a failed fetch yields an
// empty mapping to every waiter and is not memoized, so the next call
// retries.
type ChecklistCache struct {
	source ChecklistSource
	store  ChecklistStore // may be nil
	ttl    time.Duration

	group     singleflight.Group
	mu        sync.RWMutex
	entries   map[string]int
	expiresAt time.Time

	errLogger *log.Logger
}

// NewChecklistCache creates a cache over the given source. store may be nil.
func NewChecklistCache(source ChecklistSource, store ChecklistStore, ttl time.Duration) *ChecklistCache {
	if ttl <= 0 {
		ttl = DefaultChecklistTTL
	}
	return &ChecklistCache{
		source:    source,
		store:     store,
		ttl:       ttl,
		errLogger: log.New(os.Stderr, "ERROR: ", log.LstdFlags),
	}
}

// Get returns the canonical name -> taxon id mapping, fetching it on first
// use or after expiry. The returned map is shared and must not be modified.
// On fetch failure it returns an empty map, degrading fuzzy matching to
// "no match possible" instead of failing the batch.
func (c *ChecklistCache) Get(ctx context.Context) map[string]int {
	c.mu.RLock()
	if c.entries != nil && time.Now().Before(c.expiresAt) {
		entries := c.entries
		c.mu.RUnlock()
		return entries
	}
	c.mu.RUnlock()

	result, _, _ := c.group.Do("checklist", func() (interface{}, error) {
		// Re-check: a previous flight may have filled the cache while this
		// caller was queueing.
		c.mu.RLock()
		if c.entries != nil && time.Now().Before(c.expiresAt) {
			entries := c.entries
			c.mu.RUnlock()
			return entries, nil
		}
		c.mu.RUnlock()

		entries := c.refresh(ctx)
		if entries == nil {
			return map[string]int{}, nil
		}
		return entries, nil
	})
	return result.(map[string]int)
}

// Size returns the number of cached entries without triggering a fetch.
func (c *ChecklistCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// refresh loads the checklist from the warm store or the registry and
// memoizes it. Returns nil when no copy could be obtained.
func (c *ChecklistCache) refresh(ctx context.Context) map[string]int {
	if entries := c.loadStored(ctx); entries != nil {
		return entries
	}

	fetched, err := c.source.FetchChecklist(ctx)
	if err != nil {
		c.errLogger.Printf("Checklist fetch failed: %v", err)
		return nil
	}

	if c.store != nil {
		if err := c.store.Save(ctx, fetched); err != nil {
			c.errLogger.Printf("Failed to persist checklist: %v", err)
		}
	}

	return c.memoize(fetched)
}

// loadStored returns the warm copy when it is present and still fresh.
func (c *ChecklistCache) loadStored(ctx context.Context) map[string]int {
	if c.store == nil {
		return nil
	}
	stored, err := c.store.Load(ctx)
	if err != nil {
		c.errLogger.Printf("Failed to load stored checklist: %v", err)
		return nil
	}
	if len(stored) == 0 || time.Since(stored[0].FetchedAt) > c.ttl {
		return nil
	}
	return c.memoize(stored)
}

func (c *ChecklistCache) memoize(entries []model.ChecklistEntry) map[string]int {
	mapping := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.CanonicalName == "" {
			continue
		}
		mapping[e.CanonicalName] = e.TaxonID
	}

	c.mu.Lock()
	c.entries = mapping
	c.expiresAt = time.Now().Add(c.ttl)
	c.mu.Unlock()
	return mapping
}
