package pipe

import "sync"

// Containers tracks the host views calls are scoped to and whether each is
// tearing down.
type Containers struct {
	mu         sync.RWMutex
	destroying map[string]bool
}

// NewContainers returns an empty tracker.
func NewContainers() *Containers {
	return &Containers{destroying: make(map[string]bool)}
}

// Attach records id as live. A destroying container becomes live again.
func (c *Containers) Attach(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.destroying[id] = false
	c.mu.Unlock()
}

// MarkDestroying flags id as tearing down. Unknown ids are tracked too, so a
// teardown notice that overtakes the attach still routes calls safely.
func (c *Containers) MarkDestroying(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.destroying[id] = true
	c.mu.Unlock()
}

// Detach forgets id.
func (c *Containers) Detach(id string) {
	c.mu.Lock()
	delete(c.destroying, id)
	c.mu.Unlock()
}

// IsDestroying reports whether id is tearing down.
func (c *Containers) IsDestroying(id string) bool {
	if c == nil || id == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.destroying[id]
}

// Len returns the number of tracked containers.
func (c *Containers) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.destroying)
}
