package store

import (
	"sync"
	"time"
)

// DetailSlot names one of the independent per-issue resource slices.
type DetailSlot string

const (
	SlotComments    DetailSlot = "comments"
	SlotAttachments DetailSlot = "attachments"
	SlotTransitions DetailSlot = "transitions"
	SlotWorklogs    DetailSlot = "worklogs"
	SlotChecklist   DetailSlot = "checklist"
)

// detailSlots lists every slot, for whole-issue invalidation.
var detailSlots = []DetailSlot{
	SlotComments, SlotAttachments, SlotTransitions, SlotWorklogs, SlotChecklist,
}

// detailCache holds the per-issue detail slices. Each (issue, slot) pair is
// cached and invalidated independently.
type detailCache struct {
	mu      sync.Mutex
	entries map[string]map[DetailSlot]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newDetailCache(ttl time.Duration, now func() time.Time) *detailCache {
	return &detailCache{
		entries: make(map[string]map[DetailSlot]*cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// lookup returns the cached data for (issueKey, slot) when present and
// fresh. A stale entry is removed on the way out.
func (c *detailCache) lookup(issueKey string, slot DetailSlot) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.entries[issueKey]
	if !ok {
		return nil, false
	}
	entry, ok := slots[slot]
	if !ok {
		return nil, false
	}
	if !entry.fresh(c.now(), c.ttl) {
		delete(slots, slot)
		if len(slots) == 0 {
			delete(c.entries, issueKey)
		}
		return nil, false
	}
	return entry.data, true
}

// put stores data under (issueKey, slot) with a fresh timestamp, replacing
// any previous entry.
func (c *detailCache) put(issueKey string, slot DetailSlot, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.entries[issueKey]
	if !ok {
		slots = make(map[DetailSlot]*cacheEntry, len(detailSlots))
		c.entries[issueKey] = slots
	}
	slots[slot] = &cacheEntry{data: data, fetchedAt: c.now()}
}

// invalidate removes the targeted slot for an issue. It has no effect when
// nothing is cached.
func (c *detailCache) invalidate(issueKey string, slot DetailSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, ok := c.entries[issueKey]
	if !ok {
		return
	}
	delete(slots, slot)
	if len(slots) == 0 {
		delete(c.entries, issueKey)
	}
}

// invalidateAll removes every slot for an issue.
func (c *detailCache) invalidateAll(issueKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, issueKey)
}
