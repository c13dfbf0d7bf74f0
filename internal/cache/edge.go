// Package cache is the edge-local artifact cache: a disposable in-process
// copy of the latest version's artifacts under four fixed well-known
// paths. It is always safe to lose (rebuildable from the durable store)
// and only the refresh flow and the read path's write-back touch it.
package cache

import (
	"sync"
	"time"

	"github.com/everstacklabs/modelfeed/internal/artifact"
)

const pathPrefix = "/__edge/models/"

// WellKnownPath returns the fixed cache path for an artifact kind,
// representing "the latest artifact of that kind".
func WellKnownPath(kind artifact.Kind) string {
	return pathPrefix + string(kind)
}

type entry struct {
	body     []byte
	storedAt time.Time
}

// Edge is a TTL'd in-process byte cache.
type Edge struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

// New creates an edge cache. ttl <= 0 disables expiry.
func New(ttl time.Duration) *Edge {
	return &Edge{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Match returns the cached body for a path, or ok=false on miss or
// expiry. Expired entries are dropped on the way out.
func (e *Edge) Match(path string) ([]byte, bool) {
	e.mu.RLock()
	ent, ok := e.entries[path]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.ttl > 0 && time.Since(ent.storedAt) > e.ttl {
		e.mu.Lock()
		delete(e.entries, path)
		e.mu.Unlock()
		return nil, false
	}
	return ent.body, true
}

// Put stores a body under a path. Last writer wins.
func (e *Edge) Put(path string, body []byte) {
	e.mu.Lock()
	e.entries[path] = entry{body: body, storedAt: time.Now()}
	e.mu.Unlock()
}

// Purge drops every entry.
func (e *Edge) Purge() {
	e.mu.Lock()
	e.entries = make(map[string]entry)
	e.mu.Unlock()
}
