package store

import "time"

// cacheEntry holds one cached value with its fetch timestamp. Entries are
// never mutated in place; an update stores a new entry.
type cacheEntry struct {
	data      interface{}
	fetchedAt time.Time
}

// fresh reports whether the entry is still within its TTL.
func (e *cacheEntry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.fetchedAt) < ttl
}
