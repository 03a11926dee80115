package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_GetOrCreateUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	user, err := store.GetOrCreateUser(ctx, Profile{UserID: 1, UserName: "old"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.UserId)
	require.NotNil(t, user.State)
	assert.NotNil(t, user.State.Callbacks)
	assert.NotNil(t, user.Constants)

	user.State.ViewName = "MAIN"
	user.KeyboardID = 10
	require.NoError(t, store.SaveUser(ctx, user))

	user, err = store.GetOrCreateUser(ctx, Profile{UserID: 1, UserName: "new", FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "new", user.UserName, "profile is refreshed")
	assert.Equal(t, "Ann", user.FirstName)
	assert.Equal(t, "MAIN", user.State.ViewName, "state survives")
	assert.Equal(t, 10, user.KeyboardID)
}

func TestMemoryStorage_SaveUnknownUser(t *testing.T) {
	store := NewMemoryStorage()
	err := store.SaveUser(context.Background(), &User{UserId: 5, State: NewUserState()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetUser(5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	user, err := store.GetOrCreateUser(ctx, Profile{UserID: 1})
	require.NoError(t, err)
	user.State.ViewName = "UNSAVED"

	stored, err := store.GetUser(1)
	require.NoError(t, err)
	assert.Empty(t, stored.State.ViewName)
}

func cacheStores(t *testing.T) (map[string]CacheStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]CacheStorage{
		"memory": NewMemoryCacheStorage(),
		"redis":  NewRedisCacheStorage(client),
	}, mr
}

func TestCacheStorage(t *testing.T) {
	stores, _ := cacheStores(t)
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))

			_, err := store.GetCache(ctx, "absent")
			assert.ErrorIs(t, err, ErrNotFound)

			err = store.SetCache(ctx, &CacheEntry{
				Key:        "k",
				Data:       map[string]any{"title": "News", "ok": true},
				ValidUntil: time.Now().Add(time.Minute),
			})
			require.NoError(t, err)

			entry, err := store.GetCache(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "News", entry.Data["title"])
			assert.Equal(t, true, entry.Data["ok"])

			err = store.SetCache(ctx, &CacheEntry{Key: "k", Data: map[string]any{}, ValidUntil: time.Now().Add(-time.Second)})
			require.NoError(t, err)
			_, err = store.GetCache(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound, "expired entries are not served")
		})
	}
}

func TestRedisCacheStorage_Expiry(t *testing.T) {
	stores, mr := cacheStores(t)
	store := stores["redis"]
	ctx := context.Background()

	require.NoError(t, store.SetCache(ctx, &CacheEntry{
		Key:        "short",
		Data:       map[string]any{"v": "x"},
		ValidUntil: time.Now().Add(time.Minute),
	}))
	assert.True(t, mr.Exists(redisCachePrefix+"short"))
	assert.Greater(t, mr.TTL(redisCachePrefix+"short"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	_, err := store.GetCache(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLinkStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLinkStorage()

	cb := NewCallback("ITEM")
	cb.ViewParams = map[string]any{"id": "a"}
	link, err := store.GetOrCreateLink(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, "t.me/bot?start=link_"+link.ID, link.StartURL("bot"))

	same := NewCallback("ITEM")
	same.ViewParams = map[string]any{"id": "a"}
	again, err := store.GetOrCreateLink(ctx, same)
	require.NoError(t, err)
	assert.Equal(t, link.ID, again.ID, "equivalent callbacks share a link")

	other := NewCallback("ITEM")
	other.PageNum = 2
	different, err := store.GetOrCreateLink(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, link.ID, different.ID)

	found, err := store.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "ITEM", found.Callback.ViewName)

	_, err = store.GetLink(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLockStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockStorage()
	now := time.Now()
	ttl := time.Minute

	ok, err := store.AcquireLease(ctx, "k", "a", ttl, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLease(ctx, "k", "b", ttl, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "lease is still valid")

	ok, err = store.RenewLease(ctx, "k", "b", now)
	require.NoError(t, err)
	assert.False(t, ok, "only the holder renews")

	ok, err = store.RenewLease(ctx, "k", "a", now.Add(50*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLease(ctx, "k", "b", ttl, now.Add(100*time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "renewal extended the lease")

	ok, err = store.AcquireLease(ctx, "k", "b", ttl, now.Add(3*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is taken over")

	ok, err = store.ReleaseLease(ctx, "k", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ReleaseLease(ctx, "k", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	_, exists := store.Lease("k")
	assert.False(t, exists)
}
