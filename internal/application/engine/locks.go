package engine

import "sync"

// contentLocks serializes all mutation of a given content item's
// execution. Foreground API calls and timer firings for the same content
// id go through the same mutex, making the completion check and
// completeStage one atomic critical section per content id.
type contentLocks struct {
	mu    sync.Mutex
	locks map[string]*contentLock
}

type contentLock struct {
	mu   sync.Mutex
	refs int
}

func newContentLocks() *contentLocks {
	return &contentLocks{locks: make(map[string]*contentLock)}
}

// acquire locks the mutex for the content id, creating it on first use.
// The caller must call the returned unlock function exactly once; the
// entry is evicted when its last holder releases it, so the map only
// holds ids with in-flight operations.
func (c *contentLocks) acquire(contentID string) func() {
	c.mu.Lock()
	l, ok := c.locks[contentID]
	if !ok {
		l = &contentLock{}
		c.locks[contentID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, contentID)
		}
		c.mu.Unlock()
	}
}

func (c *contentLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
