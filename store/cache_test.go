package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := newTTLCache[string](time.Minute, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "one")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	c.Set("a", "two")
	v, _ = c.Get("a")
	assert.Equal(t, "two", v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheExpiry(t *testing.T) {
	c := newTTLCache[int](10*time.Millisecond, 10)
	c.Set("k", 42)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestTTLCacheCapDropsWrites(t *testing.T) {
	c := newTTLCache[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("c")
	assert.False(t, ok, "write past cap is dropped when nothing is expired")

	va, _ := c.Get("a")
	vb, _ := c.Get("b")
	assert.Equal(t, 1, va)
	assert.Equal(t, 2, vb)
}

func TestTTLCacheCapSweepsExpired(t *testing.T) {
	c := newTTLCache[int](10*time.Millisecond, 2)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)

	c.Set("c", 3)
	v, ok := c.Get("c")
	assert.True(t, ok, "expired entries swept to make room")
	assert.Equal(t, 3, v)
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := newTTLCache[int](time.Minute, 10)
	c.Set("k", 7)
	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}
