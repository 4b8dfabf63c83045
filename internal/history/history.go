// Package history keeps the most recent submission outcomes of a session in
// a bounded LRU. Nothing is persisted.
package history

import (
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"indicadores/internal/backend"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 20

// Entry is one recorded submission.
type Entry struct {
	Seq        uint64          `json:"seq"`
	Numbers    []int           `json:"dezenas"`
	Indicators []string        `json:"indicadores"`
	Outcome    string          `json:"outcome"`
	Payload    backend.Payload `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	At         time.Time       `json:"at"`
}

// History is safe for concurrent use.
type History struct {
	cache *lru.Cache[uint64, Entry]
}

// New returns a History holding at most size entries.
func New(size int) (*History, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[uint64, Entry](size)
	if err != nil {
		return nil, err
	}
	return &History{cache: c}, nil
}

// Add records e, evicting the least recently used entry when full.
func (h *History) Add(e Entry) {
	h.cache.Add(e.Seq, e)
}

// Get returns the entry for seq.
func (h *History) Get(seq uint64) (Entry, bool) {
	return h.cache.Get(seq)
}

// Recent returns all entries, newest submission first.
func (h *History) Recent() []Entry {
	keys := h.cache.Keys()
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := h.cache.Peek(k); ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}

// Len is the number of stored entries.
func (h *History) Len() int { return h.cache.Len() }

// Purge drops every entry.
func (h *History) Purge() { h.cache.Purge() }
