package region

import (
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
)

// memo is a process-lifetime lookup cache. Entries never expire and a
// stored "not found" is as good as a stored result.
type memo struct {
	store  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// entry is what the memo stores: the looked-up value and whether the
// source knew about the key at all.
type entry struct {
	value any
	found bool
}

func newMemo() *memo {
	return &memo{store: gocache.New(gocache.NoExpiration, 0)}
}

// get returns the cached entry and whether the key was cached.
func (m *memo) get(key string) (entry, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		m.misses.Add(1)
		return entry{}, false
	}
	m.hits.Add(1)
	return v.(entry), true
}

func (m *memo) put(key string, value any, found bool) {
	m.store.Set(key, entry{value: value, found: found}, gocache.NoExpiration)
}

// CacheStats reports memo usage.
type CacheStats struct {
	Items  int    `json:"items" yaml:"items"`
	Hits   uint64 `json:"hits" yaml:"hits"`
	Misses uint64 `json:"misses" yaml:"misses"`
}

func (m *memo) stats() CacheStats {
	return CacheStats{
		Items:  m.store.ItemCount(),
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}
}
