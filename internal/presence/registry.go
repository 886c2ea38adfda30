package presence

import (
	"sync"
	"time"
)

// Conn is the delivery side of a live connection. Deliver must not block.
type Conn interface {
	Deliver(payload any) bool
}

// Registry tracks which principals hold a live connection and when they were last heard from.
type Registry interface {
	Register(id string, c Conn, now time.Time)
	// Unregister removes id only while c is still its current connection.
	Unregister(id string, c Conn)
	Lookup(id string) (Conn, bool)
	Touch(id string, now time.Time) bool
	// Sweep drops entries not touched within the threshold and returns their ids.
	Sweep(now time.Time) []string
}

// IsStale reports whether lastSeen is older than threshold at now.
func IsStale(lastSeen, now time.Time, threshold time.Duration) bool {
	return now.Sub(lastSeen) > threshold
}

type entry struct {
	conn     Conn
	lastSeen time.Time
}

// MemoryRegistry is the in-process Registry.
type MemoryRegistry struct {
	mu        sync.RWMutex
	entries   map[string]entry
	threshold time.Duration
}

func NewMemoryRegistry(threshold time.Duration) *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]entry), threshold: threshold}
}

func (r *MemoryRegistry) Register(id string, c Conn, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{conn: c, lastSeen: now}
}

func (r *MemoryRegistry) Unregister(id string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && e.conn == c {
		delete(r.entries, id)
	}
}

func (r *MemoryRegistry) Lookup(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.conn, ok
}

func (r *MemoryRegistry) Touch(id string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.lastSeen = now
	r.entries[id] = e
	return true
}

func (r *MemoryRegistry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []string
	for id, e := range r.entries {
		if IsStale(e.lastSeen, now, r.threshold) {
			stale = append(stale, id)
			delete(r.entries, id)
		}
	}
	return stale
}

// Len is the number of live entries.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
