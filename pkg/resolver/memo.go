package resolver

import (
	"sync"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

// Memo is the in-process resolution cache. It is owned by a [Resolver]
// and safe for concurrent use.
type Memo struct {
	mu sync.RWMutex
	m  map[deps.Coordinate]Location
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{m: make(map[deps.Coordinate]Location)}
}

// Get returns the memoized location for id.
func (m *Memo) Get(id deps.Coordinate) (Location, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.m[id]
	return loc, ok
}

// Put records a successful resolution.
func (m *Memo) Put(id deps.Coordinate, loc Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[id] = loc
}

// Delete drops the entry for id.
func (m *Memo) Delete(id deps.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, id)
}

// Len returns the number of memoized entries.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Reset drops every entry.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.m)
}
