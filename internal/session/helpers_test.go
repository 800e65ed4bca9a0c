package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/customization"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/session"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Equal(t, want, got.StringFixed(2))
}

type fakeCatalog struct {
	items   map[string]catalog.MenuItem
	options map[string][]catalog.Option
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		items: map[string]catalog.MenuItem{
			"burger": {ID: "burger", Name: "Burger", BasePrice: dec("25.00"), Customizable: true, Active: true},
			"fries":  {ID: "fries", Name: "Fries", BasePrice: dec("10.00"), Active: true},
			"soup":   {ID: "soup", Name: "Soup", BasePrice: dec("12.00"), Active: false},
		},
		options: map[string][]catalog.Option{
			"burger": {
				{ID: "no-onion", MenuItemID: "burger", Group: "toppings", Label: "Onion", Kind: customization.KindRemoval},
				{ID: "cheese", MenuItemID: "burger", Group: "extras", Label: "Cheese", Kind: customization.KindAddition, PriceDelta: dec("3.00")},
				{ID: "brioche", MenuItemID: "burger", Group: "bread", Label: "Brioche", Kind: customization.KindReplacement, PriceDelta: dec("2.00")},
			},
		},
	}
}

func (f *fakeCatalog) SellableItem(_ context.Context, id string) (catalog.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return catalog.MenuItem{}, catalog.ErrNotFound
	}
	if !item.Active {
		return catalog.MenuItem{}, catalog.ErrUnavailable
	}
	return item, nil
}

func (f *fakeCatalog) Options(_ context.Context, menuItemID string) ([]catalog.Option, error) {
	return f.options[menuItemID], nil
}

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type fixture struct {
	svc   *session.Service
	store session.Store
	mr    *miniredis.Miniredis
}

func newRedisFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := session.RedisStore{Client: client, TTL: time.Hour}
	svc, err := session.NewService(session.ServiceConfig{
		Store:   store,
		Catalog: newFakeCatalog(),
		Locker:  lock.Locker{R: client, RetryBackoff: time.Millisecond},
		VATRate: dec("15"),
		Logger:  zerolog.Nop(),
		NewID:   sequence("sess"),
	})
	require.NoError(t, err)
	return fixture{svc: svc, store: store, mr: mr}
}

func newMemoryService(t *testing.T) *session.Service {
	t.Helper()
	svc, err := session.NewService(session.ServiceConfig{
		Store:   session.NewMemoryStore(),
		Catalog: newFakeCatalog(),
		VATRate: dec("15"),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}
