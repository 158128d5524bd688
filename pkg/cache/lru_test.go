package cache

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEntry(t *testing.T, key, value string) *Entry[string, string] {
	t.Helper()
	e, err := NewEntry(key, value, time.Now())
	require.NoError(t, err)
	return e
}

func TestLRUTable_RejectsZeroCapacity(t *testing.T) {
	_, err := newLRUTable[string, string](0)
	assert.Error(t, err)
}

func TestLRUTable_EvictsLeastRecentlyUsed(t *testing.T) {
	table, err := newLRUTable[string, string](2)
	require.NoError(t, err)

	evicted, err := table.Put("a", mustEntry(t, "a", "A"))
	require.NoError(t, err)
	assert.Nil(t, evicted)
	_, err = table.Put("b", mustEntry(t, "b", "B"))
	require.NoError(t, err)

	// touch a so b becomes LRU
	_, ok := table.Get("a")
	assert.True(t, ok)

	evicted, err = table.Put("c", mustEntry(t, "c", "C"))
	require.NoError(t, err)
	require.NotNil(t, evicted)
	assert.Equal(t, "b", evicted.Key())

	assert.Equal(t, 2, table.Len())
	assert.False(t, table.Contains("b"))
	assert.Equal(t, []string{"a", "c"}, table.Keys())
	assert.NoError(t, table.verify())
}

func TestLRUTable_PutDuplicateKeepsOriginal(t *testing.T) {
	table, err := newLRUTable[string, string](2)
	require.NoError(t, err)

	_, err = table.Put("k", mustEntry(t, "k", "v1"))
	require.NoError(t, err)
	_, err = table.Put("k", mustEntry(t, "k", "v2"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	e, ok := table.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "v1", e.Payload())
	assert.NoError(t, table.verify())
}

func TestLRUTable_PeekDoesNotPromote(t *testing.T) {
	table, err := newLRUTable[string, string](2)
	require.NoError(t, err)
	_, _ = table.Put("a", mustEntry(t, "a", "A"))
	_, _ = table.Put("b", mustEntry(t, "b", "B"))

	_, ok := table.Peek("a")
	assert.True(t, ok)

	evicted, err := table.Put("c", mustEntry(t, "c", "C"))
	require.NoError(t, err)
	assert.Equal(t, "a", evicted.Key())
}

func TestLRUTable_Remove(t *testing.T) {
	table, err := newLRUTable[string, string](3)
	require.NoError(t, err)
	_, _ = table.Put("a", mustEntry(t, "a", "A"))
	_, _ = table.Put("b", mustEntry(t, "b", "B"))

	e, ok := table.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, "A", e.Payload())

	_, ok = table.Remove("a")
	assert.False(t, ok)
	_, ok = table.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, table.Keys())
	assert.NoError(t, table.verify())
}

func TestLRUTable_RandomOpsStayConsistent(t *testing.T) {
	table, err := newLRUTable[string, string](5)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("k%d", rng.Intn(12))
		switch rng.Intn(3) {
		case 0:
			_, _ = table.Put(key, mustEntry(t, key, "v"))
		case 1:
			table.Get(key)
		case 2:
			table.Remove(key)
		}
		require.NoError(t, table.verify(), "after op %d", i)
		require.LessOrEqual(t, table.Len(), table.Capacity())
	}
}
