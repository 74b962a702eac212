// ABOUTME: Tests for the frame dedupe cache
// ABOUTME: Covers duplicate detection, TTL expiry, and size-bounded eviction

package dedupe

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_FirstSightIsNotDuplicate(t *testing.T) {
	c := New(time.Minute, 10)

	assert.False(t, c.Seen("evt-1"))
	assert.True(t, c.Seen("evt-1"))
	assert.True(t, c.Seen("evt-1"))
}

func TestCache_DistinctKeysAreIndependent(t *testing.T) {
	c := New(time.Minute, 10)

	assert.False(t, c.Seen("evt-1"))
	assert.False(t, c.Seen("evt-2"))
	assert.True(t, c.Seen("evt-1"))
}

func TestCache_ExpiredKeyIsFreshAgain(t *testing.T) {
	c := New(10*time.Millisecond, 10)

	assert.False(t, c.Seen("evt-1"))
	time.Sleep(25 * time.Millisecond)
	assert.False(t, c.Seen("evt-1"))
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)

	for i := 0; i < 3; i++ {
		c.Seen(fmt.Sprintf("evt-%d", i))
	}
	c.Seen("evt-3") // evicts evt-0

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("evt-0"), "evicted key looks fresh again")
	assert.True(t, c.Seen("evt-3"))
}

func TestCache_SweepDropsExpiredEntries(t *testing.T) {
	c := New(10*time.Millisecond, 100)

	for i := 0; i < 5; i++ {
		c.Seen(fmt.Sprintf("evt-%d", i))
	}
	time.Sleep(25 * time.Millisecond)

	c.Seen("fresh")
	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 1000)

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		g := g
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				c.Seen(fmt.Sprintf("g%d-evt-%d", g, i))
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, 800, c.Len())
}
