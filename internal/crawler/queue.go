package crawler

import (
	"sync"
)

// Frontier holds discovered communities waiting to be processed.
// Entries are popped from the back, so the most recently discovered
// community is crawled next. Duplicates are accepted; the crawler skips
// visited names when it pops them.
type Frontier struct {
	mu    sync.Mutex
	items []string
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		items: make([]string, 0),
	}
}

// Push appends names in discovery order
func (f *Frontier) Push(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, names...)
}

// Pop removes and returns the last entry.
// Returns ("", false) when the frontier is empty.
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return "", false
	}

	last := len(f.items) - 1
	name := f.items[last]
	f.items = f.items[:last]
	return name, true
}

// IsEmpty returns true if the frontier has no items
func (f *Frontier) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) == 0
}

// Size returns the current number of entries, duplicates included
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// GetAllEntries returns a snapshot of the frontier, oldest first
func (f *Frontier) GetAllEntries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := make([]string, len(f.items))
	copy(entries, f.items)
	return entries
}
