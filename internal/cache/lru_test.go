package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int64, int64](2, time.Minute)
	c.Set(1, 10)
	c.Set(2, 20)
	_, _ = c.Get(1)
	c.Set(3, 30)

	_, ok := c.Get(2)
	assert.False(t, ok)
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, int64(10), v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_Expiry(t *testing.T) {
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string, int](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Second)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestLRU_DeleteAndOverwrite(t *testing.T) {
	c := NewLRU[string, string](4, time.Minute)
	c.Set("k", "v1")
	c.Set("k", "v2")
	v, _ := c.Get("k")
	assert.Equal(t, "v2", v)

	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
	c.Delete("missing")
}

func TestJanitor(t *testing.T) {
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[int, int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set(1, 1)

	j := NewJanitor()
	j.Register(c)
	now = now.Add(time.Hour)
	assert.Equal(t, 1, j.SweepAll())

	j.Start(time.Millisecond)
	j.Start(time.Millisecond)
	j.Stop()
	j.Stop()
}
