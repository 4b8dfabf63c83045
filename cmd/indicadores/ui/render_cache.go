package ui

import (
	"hash/fnv"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RenderCache keeps rendered markdown keyed by source text and layout.
// Resizes and history toggles redraw the same payload many times; glamour
// is slow enough for that to show.
type RenderCache struct {
	cache *lru.Cache[uint64, string]
}

// NewRenderCache creates a cache holding at most size renders.
func NewRenderCache(size int) *RenderCache {
	if size <= 0 {
		size = 32
	}
	c, _ := lru.New[uint64, string](size) // only fails for size <= 0
	return &RenderCache{cache: c}
}

// RenderKey hashes the inputs that change the rendered output.
func RenderKey(markdown string, width int, dark bool) uint64 {
	h := fnv.New64a()
	h.Write([]byte(markdown))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(width)))
	if dark {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// GetOrCompute returns the cached render for key, computing it on a miss.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	if content, ok := rc.cache.Get(key); ok {
		return content
	}
	content := compute()
	rc.cache.Add(key, content)
	return content
}

// Len reports the number of cached renders.
func (rc *RenderCache) Len() int { return rc.cache.Len() }

// Clear empties the cache.
func (rc *RenderCache) Clear() { rc.cache.Purge() }
