package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/customization"
)

// PricedLine is a line together with its derived prices.
type PricedLine struct {
	Line
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Snapshot is what the cart hands to checkout and to the terminal display.
type Snapshot struct {
	Lines     []PricedLine    `json:"lines"`
	ItemCount int             `json:"itemCount"`
	VATRate   decimal.Decimal `json:"vatRate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATAmount decimal.Decimal `json:"vatAmount"`
	Total     decimal.Decimal `json:"total"`
}

// Snapshot prices every line and the cart totals in one pass.
func (c *Cart) Snapshot() Snapshot {
	lines := make([]PricedLine, 0, len(c.lines))
	for _, l := range c.lines {
		p := l.Price()
		lines = append(lines, PricedLine{Line: l.clone(), UnitPrice: p.UnitPrice, LineTotal: p.LineTotal})
	}
	sum := c.summary()
	return Snapshot{
		Lines:     lines,
		ItemCount: c.ItemCount(),
		VATRate:   c.vatRate,
		Subtotal:  sum.Subtotal,
		VATAmount: sum.VAT,
		Total:     sum.Total,
	}
}

// PersistedLine is a line as stored on a committed order.
type PersistedLine struct {
	MenuItemID    string          `json:"menuItemId"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	Customization json.RawMessage `json:"customization"`
}

// Hydrate replaces the cart contents with the lines of a persisted order.
// The stored unit price becomes the base price snapshot, so the cart reflects
// what was charged rather than the current catalog. Every record becomes its
// own line.
func (c *Cart) Hydrate(records []PersistedLine) {
	c.Clear()
	for _, rec := range records {
		base := rec.UnitPrice
		if base.IsNegative() {
			base = decimal.Zero
		}
		qty := rec.Quantity
		if qty < 1 {
			qty = 1
		}
		c.lines = append(c.lines, &Line{
			ID:            c.nextID(),
			MenuItemID:    rec.MenuItemID,
			Name:          rec.Name,
			BasePrice:     base,
			Quantity:      qty,
			Customization: customization.ParsePayload(rec.Customization),
		})
	}
}

// Persisted converts the cart lines into their stored form. UnitPrice holds
// the base price snapshot; customization deltas are kept in the payload.
func (c *Cart) Persisted() ([]PersistedLine, error) {
	out := make([]PersistedLine, 0, len(c.lines))
	for _, l := range c.lines {
		payload, err := customization.Encode(l.Customization)
		if err != nil {
			return nil, err
		}
		out = append(out, PersistedLine{
			MenuItemID:    l.MenuItemID,
			Name:          l.Name,
			UnitPrice:     l.BasePrice,
			Quantity:      l.Quantity,
			Customization: payload,
		})
	}
	return out, nil
}
