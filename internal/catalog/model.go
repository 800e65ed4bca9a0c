package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/customization"
)

// MenuItem is a sellable product on the menu.
type MenuItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	BasePrice    decimal.Decimal `json:"basePrice"`
	Customizable bool            `json:"customizable"`
	Active       bool            `json:"active"`
}

// Snapshot captures the fields a cart line keeps from the menu item.
func (m MenuItem) Snapshot() cart.Item {
	return cart.Item{MenuItemID: m.ID, Name: m.Name, BasePrice: m.BasePrice}
}

// Option is one customization choice offered for a menu item.
type Option struct {
	ID         string             `json:"id"`
	MenuItemID string             `json:"menuItemId"`
	Group      string             `json:"group"`
	Label      string             `json:"label"`
	Kind       customization.Kind `json:"kind"`
	PriceDelta decimal.Decimal    `json:"priceDelta"`
}

// MenuItemDetail is a menu item with its customization options.
type MenuItemDetail struct {
	MenuItem
	Options []Option `json:"options"`
}
