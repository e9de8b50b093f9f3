package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"problemhunter/internal/domain/post"
)

func TestPutGet(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	a := post.Analysis{IsPainPoint: true, Score: 7, Solution: "automate it"}
	c.Put("hn_1", a)

	got, ok := c.Get("hn_1")
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = c.Get("hn_2")
	assert.False(t, ok)
}

func TestPutDropsSentinels(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	c.Put("hn_1", post.ErrorSentinel("classifier timeout"))

	_, ok := c.Get("hn_1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEvictionKeepsRecentEntries(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("p%d", i), post.Analysis{Score: i})
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("p0")
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = c.Get("p2")
	assert.True(t, ok)
}

func TestZeroSizeFallsBackToDefault(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)

	c.Put("p", post.Analysis{Score: 1})
	assert.Equal(t, 1, c.Len())
}

func TestPurge(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	c.Put("p", post.Analysis{Score: 1})
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
