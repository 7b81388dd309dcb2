package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/felixgeelhaar/practicum/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*KVStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewKVStore(client), mr
}

func TestKVStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)

	require.NoError(t, store.Set(ctx, storage.KeyProgress, `{"ex-1":{}}`))

	got, err := store.Get(ctx, storage.KeyProgress)
	require.NoError(t, err)
	assert.Equal(t, `{"ex-1":{}}`, got)

	raw, err := mr.Get("practicum:" + storage.KeyProgress)
	require.NoError(t, err)
	assert.Equal(t, `{"ex-1":{}}`, raw)
	assert.Zero(t, mr.TTL("practicum:"+storage.KeyProgress), "records must not expire")
}

func TestKVStore_GetMissing(t *testing.T) {
	store, _ := setupRedis(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKVStore_Remove(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Remove(ctx, "k"))
	assert.False(t, mr.Exists("practicum:k"))

	assert.NoError(t, store.Remove(ctx, "k"), "removing a missing key is not an error")
}

func TestKVStore_ScopedUsers(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)

	alice := storage.NewScoped(store, "alice")
	require.NoError(t, alice.Set(ctx, storage.KeyTags, "{}"))

	assert.True(t, mr.Exists("practicum:user:alice:"+storage.KeyTags))

	_, err := storage.NewScoped(store, "bob").Get(ctx, storage.KeyTags)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKVStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedis(t)
	mr.Close()

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "k", "v"))
}
