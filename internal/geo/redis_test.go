package geo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	pune := Found(Coordinates{Latitude: 18.5204, Longitude: 73.8567})
	require.NoError(t, store.Set(ctx, "pune", pune, time.Hour))
	require.NoError(t, store.Set(ctx, "atlantis", NotFound, time.Hour))

	got, ok, err := store.Get(ctx, "pune")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pune, got)

	got, ok, err = store.Get(ctx, "atlantis")
	require.NoError(t, err)
	assert.True(t, ok, "a cached not-found lookup is still a hit")
	assert.False(t, got.Found)

	raw, err := mr.Get("geocode:pune")
	require.NoError(t, err)
	assert.JSONEq(t, `{"coordinates": {"lat": 18.5204, "lon": 73.8567}, "found": true}`, raw)
}

func TestRedisStoreMissingKey(t *testing.T) {
	store, _ := newTestRedisStore(t)

	got, ok, err := store.Get(context.Background(), "mumbai")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, NotFound, got)
}

func TestRedisStoreUndecodableValue(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("geocode:delhi", "{not json"))

	got, ok, err := store.Get(context.Background(), "delhi")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, NotFound, got)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pune", Found(Coordinates{Latitude: 18.52}), 2*time.Hour))
	assert.Equal(t, 2*time.Hour, mr.TTL("geocode:pune"))

	mr.FastForward(2*time.Hour + time.Second)

	_, ok, err := store.Get(ctx, "pune")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreBacksCachedGeocoder(t *testing.T) {
	store, mr := newTestRedisStore(t)
	next := &countingGeocoder{results: map[string]Lookup{"Mumbai": Found(Coordinates{Latitude: 19.07, Longitude: 72.87})}}
	cached := NewCachedGeocoder(next, store, time.Hour, zap.NewNop())

	for _, q := range []string{"Mumbai", "  mumbai "} {
		lookup, err := cached.Geocode(context.Background(), q)
		require.NoError(t, err)
		assert.True(t, lookup.Found)
	}

	assert.Equal(t, map[string]int{"Mumbai": 1}, next.calls)
	assert.True(t, mr.Exists("geocode:mumbai"))
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-redis-url", "")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	_, err = NewRedisClient(context.Background(), "redis://"+mr.Addr(), "wrong")
	assert.Error(t, err)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), "s3cret")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.NoError(t, client.Ping(context.Background()).Err())
}
