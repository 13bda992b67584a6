package session

import "sync"

// ScrollbackCache is the last-known-good in-memory map of terminal id to
// scrollback lines. It is never durable itself; it lets saves run without a
// live extraction round trip and gives restores a fallback.
type ScrollbackCache struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewScrollbackCache creates an empty cache.
func NewScrollbackCache() *ScrollbackCache {
	return &ScrollbackCache{entries: make(map[string][]string)}
}

// Set stores lines for a terminal. An empty update carries no new
// information and never overwrites prior data.
func (c *ScrollbackCache) Set(terminalID string, lines []string) {
	if terminalID == "" || len(lines) == 0 {
		return
	}
	copied := make([]string, len(lines))
	copy(copied, lines)

	c.mu.Lock()
	c.entries[terminalID] = copied
	c.mu.Unlock()
}

// Get returns the cached lines for a terminal, if any.
func (c *ScrollbackCache) Get(terminalID string) ([]string, bool) {
	c.mu.RLock()
	lines, ok := c.entries[terminalID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	copied := make([]string, len(lines))
	copy(copied, lines)
	return copied, true
}

// Delete removes a terminal's entry.
func (c *ScrollbackCache) Delete(terminalID string) {
	c.mu.Lock()
	delete(c.entries, terminalID)
	c.mu.Unlock()
}

// Len returns the number of cached terminals.
func (c *ScrollbackCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *ScrollbackCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]string)
	c.mu.Unlock()
}
