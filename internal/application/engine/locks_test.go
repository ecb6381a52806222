package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentLocksEvictReleasedEntries(t *testing.T) {
	c := newContentLocks()

	unlockA := c.acquire("content-1")
	unlockB := c.acquire("content-2")
	assert.Equal(t, 2, c.size())

	unlockA()
	assert.Equal(t, 1, c.size())
	unlockB()
	assert.Equal(t, 0, c.size())
}

func TestContentLocksSerializeSameID(t *testing.T) {
	c := newContentLocks()

	var n int // guarded by the content lock
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := c.acquire("content-1")
			n++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, n)
	assert.Equal(t, 0, c.size())
}
