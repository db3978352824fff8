package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched snapshot stays fresh.
const DefaultTTL = 10 * time.Minute

// Loader produces a fresh snapshot, typically by reading it from storage.
type Loader func(ctx context.Context) (Snapshot, error)

// Cache holds the most recent snapshot and refreshes it once the TTL has
// elapsed. Concurrent callers that hit an expired entry share one load.
type Cache struct {
	load  Loader
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu       sync.RWMutex
	snapshot Snapshot
	loadedAt time.Time
	loaded   bool
}

// NewCache creates a cache around load. A zero ttl uses DefaultTTL and a
// nil now uses time.Now.
func NewCache(load Loader, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{load: load, ttl: ttl, now: now}
}

// Get returns the meal and catalog of a fresh snapshot, loading one if the
// cached entry is missing or stale.
func (c *Cache) Get(ctx context.Context) (string, Catalog, error) {
	s, err := c.Snapshot(ctx)
	if err != nil {
		return "", nil, err
	}
	return s.Meal, s.Catalog, nil
}

// Snapshot is Get returning the whole snapshot. The load itself is detached
// from ctx so one caller giving up does not fail the others sharing it; ctx
// only bounds how long this caller waits.
func (c *Cache) Snapshot(ctx context.Context) (Snapshot, error) {
	if s, ok := c.fresh(); ok {
		return s, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("snapshot", func() (any, error) {
		if s, ok := c.fresh(); ok {
			return s, nil
		}
		s, err := c.load(loadCtx)
		if err != nil {
			return Snapshot{}, err
		}
		c.mu.Lock()
		c.snapshot, c.loadedAt, c.loaded = s, c.now(), true
		c.mu.Unlock()
		slog.Info("CATALOG: Snapshot refreshed", "meal", s.Meal, "halls", len(s.Catalog), "items", s.Catalog.Len())
		return s, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		if res.Shared {
			slog.Debug("CATALOG: Shared in-flight snapshot load")
		}
		return res.Val.(Snapshot), nil
	}
}

// Invalidate drops the cached snapshot so the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

func (c *Cache) fresh() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().Sub(c.loadedAt) >= c.ttl {
		return Snapshot{}, false
	}
	return c.snapshot, true
}
