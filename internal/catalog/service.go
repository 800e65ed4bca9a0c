package catalog

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound indicates the requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// ErrUnavailable indicates the menu item exists but is not on sale.
var ErrUnavailable = errors.New("menu item unavailable")

// Store is the read side of the menu.
type Store interface {
	GetMenuItem(ctx context.Context, id string) (MenuItem, error)
	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	ListOptions(ctx context.Context, menuItemID string) ([]Option, error)
}

// Service serves catalog reads through the Redis cache.
type Service struct {
	store Store
	cache *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store Store
	Cache *Cache
}

// NewService constructs a catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache}, nil
}

// MenuItem returns a menu item by id.
func (s *Service) MenuItem(ctx context.Context, id string) (MenuItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MenuItem{}, ErrNotFound
	}
	var item MenuItem
	if ok, _ := s.cache.GetJSON(ctx, itemKey(id), &item); ok {
		return item, nil
	}
	item, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		return MenuItem{}, err
	}
	_ = s.cache.SetJSON(ctx, itemKey(id), item)
	return item, nil
}

// SellableItem returns a menu item only when it is active.
func (s *Service) SellableItem(ctx context.Context, id string) (MenuItem, error) {
	item, err := s.MenuItem(ctx, id)
	if err != nil {
		return MenuItem{}, err
	}
	if !item.Active {
		return MenuItem{}, ErrUnavailable
	}
	return item, nil
}

// Options returns the customization options for a menu item. Items that are
// not customizable have none.
func (s *Service) Options(ctx context.Context, menuItemID string) ([]Option, error) {
	item, err := s.MenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	if !item.Customizable {
		return []Option{}, nil
	}
	var options []Option
	if ok, _ := s.cache.GetJSON(ctx, optionsKey(item.ID), &options); ok {
		return options, nil
	}
	options, err = s.store.ListOptions(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []Option{}
	}
	_ = s.cache.SetJSON(ctx, optionsKey(item.ID), options)
	return options, nil
}

// Detail returns a menu item with its options.
func (s *Service) Detail(ctx context.Context, id string) (MenuItemDetail, error) {
	item, err := s.MenuItem(ctx, id)
	if err != nil {
		return MenuItemDetail{}, err
	}
	options, err := s.Options(ctx, id)
	if err != nil {
		return MenuItemDetail{}, err
	}
	return MenuItemDetail{MenuItem: item, Options: options}, nil
}

// List returns the active menu.
func (s *Service) List(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	if ok, _ := s.cache.GetJSON(ctx, listKey(), &items); ok {
		return items, nil
	}
	items, err := s.store.ListMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []MenuItem{}
	}
	_ = s.cache.SetJSON(ctx, listKey(), items)
	return items, nil
}
