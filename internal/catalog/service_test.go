package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
)

func newCachedService(t *testing.T) (*catalog.Service, *fakeStore, *catalog.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	cache := catalog.NewCache(client, time.Minute)
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Cache: cache})
	require.NoError(t, err)
	return svc, store, cache
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := catalog.NewService(catalog.ServiceConfig{})
	require.Error(t, err)
}

func TestMenuItemIsCached(t *testing.T) {
	ctx := context.Background()
	svc, store, cache := newCachedService(t)

	item, err := svc.MenuItem(ctx, "burger")
	require.NoError(t, err)
	require.Equal(t, "Burger", item.Name)

	again, err := svc.MenuItem(ctx, "burger")
	require.NoError(t, err)
	require.True(t, item.BasePrice.Equal(again.BasePrice))
	require.Equal(t, 1, store.count("GetMenuItem"))

	require.NoError(t, cache.Invalidate(ctx, "burger"))
	_, err = svc.MenuItem(ctx, "burger")
	require.NoError(t, err)
	require.Equal(t, 2, store.count("GetMenuItem"))
}

func TestSellableItem(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCachedService(t)

	_, err := svc.SellableItem(ctx, "soup")
	require.ErrorIs(t, err, catalog.ErrUnavailable)

	_, err = svc.SellableItem(ctx, "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.SellableItem(ctx, "  ")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	item, err := svc.SellableItem(ctx, "cola")
	require.NoError(t, err)
	snap := item.Snapshot()
	require.Equal(t, "cola", snap.MenuItemID)
	require.Equal(t, "6", snap.BasePrice.String())
}

func TestOptionsForPlainItemAreEmpty(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newCachedService(t)

	options, err := svc.Options(ctx, "cola")
	require.NoError(t, err)
	require.Empty(t, options)
	require.NotNil(t, options)
	require.Equal(t, 0, store.count("ListOptions"))
}

func TestDetailAndListUseCache(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newCachedService(t)

	detail, err := svc.Detail(ctx, "burger")
	require.NoError(t, err)
	require.Len(t, detail.Options, 5)
	_, err = svc.Detail(ctx, "burger")
	require.NoError(t, err)
	require.Equal(t, 1, store.count("ListOptions"))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.count("ListMenuItems"))
}

func TestServiceWithoutCache(t *testing.T) {
	store := newFakeStore()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := svc.MenuItem(context.Background(), "cola")
		require.NoError(t, err)
	}
	require.Equal(t, 2, store.count("GetMenuItem"))
}
