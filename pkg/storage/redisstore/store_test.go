package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/campuscrave/campuscrave-client/pkg/config"
	pkgredis "github.com/campuscrave/campuscrave-client/pkg/redis"
	"github.com/campuscrave/campuscrave-client/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := pkgredis.New(context.Background(), config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	store := New(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storage.KeyCart, []byte(`[{"itemId":1}]`)))

	data, err := store.Load(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[{"itemId":1}]`, string(data))

	// Keys are namespaced so several apps can share the instance.
	assert.True(t, mr.Exists("cc:state:"+storage.KeyCart))
}

func TestLoadMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), storage.KeyFavorites)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestDeleteRemovesSnapshot(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, storage.KeyCart, []byte(`[]`)))
	require.NoError(t, store.Delete(ctx, storage.KeyCart))

	_, err := store.Load(ctx, storage.KeyCart)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	// Deleting again is harmless.
	require.NoError(t, store.Delete(ctx, storage.KeyCart))
}
