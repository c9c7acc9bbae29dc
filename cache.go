// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheSize is the default maximum entry count per keyspace.
const DefaultCacheSize = 1000

// TypeCache stores discovered type metadata for one client session.
//
// Two independent keyspaces share its capacity configuration: type
// definitions (opaque blobs keyed by type id) and structure field-name
// lists (keyed by node or type id). Each keyspace holds at most its
// configured maximum; inserting beyond capacity evicts the least
// recently used entry of that keyspace first. Every successful Get
// marks the entry most recently used.
//
// The cache is created on Connect, lives for the session and is
// discarded on Disconnect. A mutex guards all access because the
// navigator and codec touch the cache from concurrent child reads, and
// LRU reordering is not atomic across the check-then-update sequence.
type TypeCache struct {
	mu          sync.Mutex
	definitions *lru.LRU[string, any]
	fieldNames  *lru.LRU[string, []string]
	hits        int
	misses      int
}

// CacheStats is a snapshot of cache accounting.
type CacheStats struct {
	// Hits is the number of Get calls that found an entry
	Hits int

	// Misses is the number of Get calls that found nothing
	Misses int

	// Total is Hits + Misses
	Total int

	// HitRate is the hit percentage rounded to two decimals
	HitRate float64

	// DefinitionsCached is the current type-definition entry count
	DefinitionsCached int

	// FieldNamesCached is the current field-name-list entry count
	FieldNamesCached int
}

// NewTypeCache creates a TypeCache with the given per-keyspace capacity.
// Non-positive sizes fall back to DefaultCacheSize.
func NewTypeCache(maxSize int) *TypeCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	// simplelru only errors on non-positive size, which is ruled out above
	defs, _ := lru.NewLRU[string, any](maxSize, nil)
	fields, _ := lru.NewLRU[string, []string](maxSize, nil)
	return &TypeCache{
		definitions: defs,
		fieldNames:  fields,
	}
}

// GetDefinition returns the cached type definition for a type id.
func (c *TypeCache) GetDefinition(typeID string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	def, ok := c.definitions.Get(typeID)
	c.count(ok)
	return def, ok
}

// SetDefinition stores a type definition, evicting the least recently
// used definition first when the keyspace is at capacity.
func (c *TypeCache) SetDefinition(typeID string, definition any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.definitions.Add(typeID, definition)
}

// GetFieldNames returns the cached field-name list for a node or type id.
func (c *TypeCache) GetFieldNames(id string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, ok := c.fieldNames.Get(id)
	c.count(ok)
	return names, ok
}

// SetFieldNames stores a field-name list, evicting the least recently
// used list first when the keyspace is at capacity.
func (c *TypeCache) SetFieldNames(id string, names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fieldNames.Add(id, names)
}

// Clear resets both keyspaces and both counters.
func (c *TypeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.definitions.Purge()
	c.fieldNames.Purge()
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of hit/miss accounting and entry counts.
func (c *TypeCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
		hitRate = float64(int(hitRate*100+0.5)) / 100
	}
	return CacheStats{
		Hits:              c.hits,
		Misses:            c.misses,
		Total:             total,
		HitRate:           hitRate,
		DefinitionsCached: c.definitions.Len(),
		FieldNamesCached:  c.fieldNames.Len(),
	}
}

// count updates hit/miss counters. Caller must hold c.mu.
func (c *TypeCache) count(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}
