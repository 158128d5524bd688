package overflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashpect/tiercache/pkg/cache"
	"github.com/ashpect/tiercache/pkg/codec"
)

type profile struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Visit int      `json:"visit"`
}

func openTestBolt(t *testing.T, path string) *BoltStore[string, profile] {
	t.Helper()
	store, err := OpenBolt[string, profile](path, codec.JSON[profile]{}, Options{Bucket: "test", NoSync: true})
	require.NoError(t, err)
	return store
}

func TestBoltStore_StoreLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestBolt(t, filepath.Join(t.TempDir(), "overflow.bbolt"))
	defer store.Close()

	p := profile{Name: "ada", Tags: []string{"admin"}, Visit: 3}
	e, err := cache.NewEntry("user:ada", p, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, "user:ada", e))
	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Load(ctx, "user:ada")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p, got.Payload())
	assert.True(t, got.ExpiresAt().Equal(e.ExpiresAt()))

	existed, err := store.Delete(ctx, "user:ada")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, "user:ada")
	require.NoError(t, err)
	assert.False(t, existed)

	got, err = store.Load(ctx, "user:ada")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBoltStore_StoreReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTestBolt(t, filepath.Join(t.TempDir(), "overflow.bbolt"))
	defer store.Close()

	first, _ := cache.NewEntry("k", profile{Name: "v1"}, time.Now())
	second, _ := cache.NewEntry("k", profile{Name: "v2"}, time.Now())
	require.NoError(t, store.Store(ctx, "k", first))
	require.NoError(t, store.Store(ctx, "k", second))

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Payload().Name)
	n, _ := store.Len()
	assert.Equal(t, 1, n)
}

func TestBoltStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := openTestBolt(t, filepath.Join(t.TempDir(), "overflow.bbolt"))
	defer store.Close()

	now := time.Now()
	short, _ := cache.NewEntryWithTTL("short", profile{Name: "s"}, cache.MinTTL, now)
	long, _ := cache.NewEntryWithTTL("long", profile{Name: "l"}, cache.MaxTTL, now)
	require.NoError(t, store.Store(ctx, "short", short))
	require.NoError(t, store.Store(ctx, "long", long))

	purged, err := store.PurgeExpired(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, purged)

	purged, err = store.PurgeExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	got, err := store.Load(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = store.Load(ctx, "long")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestBoltStore_HonorsCanceledContext(t *testing.T) {
	store := openTestBolt(t, filepath.Join(t.TempDir(), "overflow.bbolt"))
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, _ := cache.NewEntry("k", profile{}, time.Now())

	assert.ErrorIs(t, store.Store(ctx, "k", e), context.Canceled)
	_, err := store.Load(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Delete(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoltStore_ClosedStore(t *testing.T) {
	store := openTestBolt(t, filepath.Join(t.TempDir(), "overflow.bbolt"))
	require.NoError(t, store.Close())

	_, err := store.Load(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

// Entries spilled by one cache survive a restart and rehydrate in the next.
func TestBoltStore_BacksTieredCacheAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overflow.bbolt")

	store := openTestBolt(t, path)
	c, err := cache.New[string, profile](2, cache.WithOverflow[string, profile](store))
	require.NoError(t, err)

	require.NoError(t, c.Set("a", profile{Name: "a"}))
	require.NoError(t, c.Set("b", profile{Name: "b"}))
	_, ok := c.Get("a")
	require.True(t, ok)
	require.NoError(t, c.Set("c", profile{Name: "c"}))

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "b spilled to disk")

	c.Close()
	require.NoError(t, store.Close())

	store = openTestBolt(t, path)
	defer store.Close()
	restarted, err := cache.New[string, profile](2, cache.WithOverflow[string, profile](store))
	require.NoError(t, err)
	defer restarted.Close()

	got, ok := restarted.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.Name)

	n, err = store.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rehydrated blob deleted")

	_, ok = restarted.Get("a")
	assert.False(t, ok, "memory-only entries do not survive a restart")
}
