package catalog_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/customization"
)

type fakeStore struct {
	mu      sync.Mutex
	items   map[string]catalog.MenuItem
	options map[string][]catalog.Option
	calls   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: map[string]catalog.MenuItem{
			"burger": {ID: "burger", Name: "Burger", Category: "mains", BasePrice: decimal.RequireFromString("25.00"), Customizable: true, Active: true},
			"cola":   {ID: "cola", Name: "Cola", Category: "drinks", BasePrice: decimal.RequireFromString("6.00"), Active: true},
			"soup":   {ID: "soup", Name: "Soup of the day", Category: "starters", BasePrice: decimal.RequireFromString("12.00"), Active: false},
		},
		options: map[string][]catalog.Option{
			"burger": {
				{ID: "no-onion", MenuItemID: "burger", Group: "toppings", Label: "Onion", Kind: customization.KindRemoval},
				{ID: "cheese", MenuItemID: "burger", Group: "extras", Label: "Cheese", Kind: customization.KindAddition, PriceDelta: decimal.RequireFromString("3.00")},
				{ID: "bacon", MenuItemID: "burger", Group: "extras", Label: "Bacon", Kind: customization.KindAddition, PriceDelta: decimal.RequireFromString("4.50")},
				{ID: "brioche", MenuItemID: "burger", Group: "bread", Label: "Brioche", Kind: customization.KindReplacement, PriceDelta: decimal.RequireFromString("2.00")},
				{ID: "lettuce-wrap", MenuItemID: "burger", Group: "bread", Label: "Lettuce wrap", Kind: customization.KindReplacement, PriceDelta: decimal.RequireFromString("-1.00")},
			},
		},
		calls: map[string]int{},
	}
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) GetMenuItem(_ context.Context, id string) (catalog.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetMenuItem"]++
	item, ok := f.items[id]
	if !ok {
		return catalog.MenuItem{}, catalog.ErrNotFound
	}
	return item, nil
}

func (f *fakeStore) ListMenuItems(context.Context) ([]catalog.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListMenuItems"]++
	var out []catalog.MenuItem
	for _, id := range []string{"burger", "cola", "soup"} {
		if item := f.items[id]; item.Active {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOptions(_ context.Context, menuItemID string) ([]catalog.Option, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListOptions"]++
	return f.options[menuItemID], nil
}
