package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// catalog is the TTL cache for one whole-collection resource (a status or
// resolution catalog, a queue/project/user directory). Each catalog has its
// own cache slot; the shared flight group de-duplicates concurrent fetches
// by the catalog's name.
type catalog[T any] struct {
	name   string
	fetch  func(context.Context) (T, error)
	flight *singleflight.Group
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	entry *cacheEntry
}

func newCatalog[T any](name string, ttl time.Duration, now func() time.Time, flight *singleflight.Group, fetch func(context.Context) (T, error)) *catalog[T] {
	return &catalog[T]{
		name:   name,
		fetch:  fetch,
		flight: flight,
		ttl:    ttl,
		now:    now,
	}
}

// get returns the cached collection when fresh and not forced, otherwise
// fetches it through the coalescer. Fetch failures propagate to every
// waiter and nothing is cached.
func (c *catalog[T]) get(ctx context.Context, force bool) (T, error) {
	if !force {
		c.mu.Lock()
		entry := c.entry
		now := c.now()
		c.mu.Unlock()
		if entry != nil && entry.fresh(now, c.ttl) {
			return entry.data.(T), nil
		}
	}

	return inFlight(c.flight, "catalog:"+c.name, func() (T, error) {
		data, err := c.fetch(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		c.mu.Lock()
		c.entry = &cacheEntry{data: data, fetchedAt: c.now()}
		c.mu.Unlock()
		return data, nil
	})
}

// invalidate drops the cached collection.
func (c *catalog[T]) invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}
