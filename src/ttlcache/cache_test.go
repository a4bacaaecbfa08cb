package ttlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheHitAndMiss(t *testing.T) {
	c := New[int](time.Minute, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 42)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCacheExpiry(t *testing.T) {
	c := New[string](10*time.Millisecond, 10)
	c.Set("k", "v")

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(25 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	// Expired entries are deleted on read.
	assert.Equal(t, 0, c.Len())
}

func TestCacheZeroTTLDisables(t *testing.T) {
	c := New[int](0, 10)
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := New[int](time.Minute, 2)

	c.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	c.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	c.Set("third", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	c := New[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	assert.Equal(t, 2, c.Len())
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
