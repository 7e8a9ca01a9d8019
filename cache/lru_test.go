// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	_, err := NewLRU[int, string](0)
	assert.Error(t, err)

	c, err := NewLRU[int, string](2)
	require.NoError(t, err)

	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(1)
	assert.False(t, ok, "oldest entry evicted")
	v, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	c.Remove(3)
	_, ok = c.Get(3)
	assert.False(t, ok)

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestLRUGetOrLoad(t *testing.T) {
	c, err := NewLRU[string, int](8)
	require.NoError(t, err)

	loads := 0
	loader := func(k string) (int, error) {
		loads++
		return len(k), nil
	}
	for range 3 {
		v, err := c.GetOrLoad("four", loader)
		require.NoError(t, err)
		assert.Equal(t, 4, v)
	}
	assert.Equal(t, 1, loads)

	boom := errors.New("boom")
	_, err = c.GetOrLoad("x", func(string) (int, error) { return 0, boom })
	assert.Equal(t, boom, err)
	_, ok := c.Get("x")
	assert.False(t, ok)

	changed, hit, miss := c.Stats().Stats()
	assert.True(t, changed)
	assert.Equal(t, int64(2), hit)
	assert.Equal(t, int64(3), miss)

	changed, _, _ = c.Stats().Stats()
	assert.False(t, changed)
	assert.InDelta(t, 0.4, c.Stats().HitRate(), 1e-9)
}
