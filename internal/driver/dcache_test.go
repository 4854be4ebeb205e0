package driver_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"spvregular/internal/driver"
	"spvregular/internal/observ"
	"spvregular/internal/regularize"
)

func TestCacheKey(t *testing.T) {
	a := driver.CacheKey([]byte("module a"), regularize.Options{})
	require.False(t, a.IsZero())
	require.Equal(t, a, driver.CacheKey([]byte("module a"), regularize.Options{}))
	require.Equal(t, a, driver.CacheKey([]byte("module a"), regularize.Options{PassName: regularize.PassName}))
	require.NotEqual(t, a, driver.CacheKey([]byte("module b"), regularize.Options{}))
	require.NotEqual(t, a, driver.CacheKey([]byte("module a"), regularize.Options{PassName: "custom"}))
	require.Len(t, a.String(), 64)
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := driver.NewDiskCache(filepath.Join(t.TempDir(), "c"))
	require.NoError(t, err)
	key := driver.CacheKey([]byte("x"), regularize.Options{})

	var got driver.DiskPayload
	hit, err := cache.Get(key, &got)
	require.NoError(t, err)
	require.False(t, hit)

	want := &driver.DiskPayload{
		Module:   "x",
		Source:   "x.mp",
		Output:   []byte{1, 2, 3},
		Counters: []observ.CounterReport{{Name: "fshl", Value: 2}},
	}
	require.NoError(t, cache.Put(key, want))
	hit, err = cache.Get(key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, *want, got)

	require.NoError(t, cache.DropAll())
	got = driver.DiskPayload{}
	hit, err = cache.Get(key, &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestNilDiskCache(t *testing.T) {
	var cache *driver.DiskCache
	require.NoError(t, cache.Put(driver.Digest{}, &driver.DiskPayload{}))
	hit, err := cache.Get(driver.Digest{}, &driver.DiskPayload{})
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.DropAll())
	require.Empty(t, cache.Dir())
}
