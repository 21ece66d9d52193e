package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		expected int
	}{
		{
			name:     "positive capacity",
			capacity: 100,
			expected: 100,
		},
		{
			name:     "zero capacity defaults to default",
			capacity: 0,
			expected: DefaultCapacity,
		},
		{
			name:     "negative capacity defaults to default",
			capacity: -10,
			expected: DefaultCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithCapacity[string, int](tt.capacity)
			require.NotNil(t, c)
			assert.Equal(t, tt.expected, c.capacity)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestLRU_GetSet(t *testing.T) {
	c := NewWithCapacity[string, string](0)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// Overwrite keeps a single entry.
	c.Set("a", "2")
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Eviction(t *testing.T) {
	c := NewWithCapacity[int, string](2)

	c.Set(1, "one")
	c.Set(2, "two")

	// Touch 1 so 2 becomes the eviction candidate.
	_, _ = c.Get(1)
	c.Set(3, "three")

	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)

	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRU_Clear(t *testing.T) {
	c := NewWithCapacity[string, int](0)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRU_Stats(t *testing.T) {
	c := NewWithCapacity[string, int](10)
	c.Set("a", 1)

	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("b")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.0001)
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewWithCapacity[string, int](50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
