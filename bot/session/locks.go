package session

import "sync"

// contactLocks serializes event processing per contact: no two events for
// the same contact are ever processed concurrently, while distinct contacts
// proceed in parallel.
type contactLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newContactLocks() *contactLocks {
	return &contactLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *contactLocks) get(contactID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[contactID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[contactID] = l
	}
	return l
}
