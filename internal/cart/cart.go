package cart

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/customization"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Item is the catalog snapshot captured when a menu item is added.
type Item struct {
	MenuItemID string
	Name       string
	BasePrice  decimal.Decimal
}

// Line is one row of an in-progress order.
type Line struct {
	ID            string            `json:"id"`
	MenuItemID    string            `json:"menuItemId"`
	Name          string            `json:"name"`
	BasePrice     decimal.Decimal   `json:"basePrice"`
	Quantity      int               `json:"quantity"`
	Customization customization.Set `json:"customization"`
}

// Price returns the unit price and line total of l.
func (l Line) Price() pricing.Line {
	return pricing.PriceLine(l.BasePrice, l.Customization.AdditionDeltas(), l.Customization.ReplacementDeltas(), l.Quantity)
}

// Customized reports whether the line carries any customization.
func (l Line) Customized() bool {
	return !l.Customization.IsEmpty()
}

func (l Line) clone() Line {
	l.Customization = l.Customization.Clone()
	return l
}

// Cart holds the lines of an order being entered at a terminal. A Cart is not
// safe for concurrent use.
type Cart struct {
	vatRate decimal.Decimal
	lines   []*Line
	newID   func() string
}

// Option configures a Cart.
type Option func(*Cart)

// WithIDGenerator overrides how line identifiers are generated.
func WithIDGenerator(fn func() string) Option {
	return func(c *Cart) {
		c.newID = fn
	}
}

// New returns an empty cart using vatRate as a percentage.
func New(vatRate decimal.Decimal, opts ...Option) *Cart {
	if vatRate.IsNegative() {
		vatRate = decimal.Zero
	}
	c := &Cart{vatRate: vatRate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VATRate returns the configured VAT percentage.
func (c *Cart) VATRate() decimal.Decimal {
	return c.vatRate
}

func (c *Cart) nextID() string {
	if c.newID != nil {
		return c.newID()
	}
	return uuid.NewString()
}

func (c *Cart) find(lineID string) (int, *Line) {
	for i, l := range c.lines {
		if l.ID == lineID {
			return i, l
		}
	}
	return -1, nil
}

// AddItem adds one unit of item. An existing uncustomized line for the same
// menu item is incremented; customized lines are never merged. The id of the
// affected line is returned.
func (c *Cart) AddItem(item Item) string {
	for _, l := range c.lines {
		if l.MenuItemID == item.MenuItemID && !l.Customized() {
			l.Quantity++
			return l.ID
		}
	}
	base := item.BasePrice
	if base.IsNegative() {
		base = decimal.Zero
	}
	l := &Line{
		ID:         c.nextID(),
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		BasePrice:  base,
		Quantity:   1,
	}
	c.lines = append(c.lines, l)
	return l.ID
}

// IncrementItem adds one to the line's quantity.
func (c *Cart) IncrementItem(lineID string) {
	if _, l := c.find(lineID); l != nil {
		l.Quantity++
	}
}

// DecrementItem subtracts one from the line's quantity, removing the line
// when it would drop below one.
func (c *Cart) DecrementItem(lineID string) {
	i, l := c.find(lineID)
	if l == nil {
		return
	}
	if l.Quantity <= 1 {
		c.removeAt(i)
		return
	}
	l.Quantity--
}

// SetQuantity sets the quantity of a line. Values below one are clamped to one.
func (c *Cart) SetQuantity(lineID string, qty int) {
	if _, l := c.find(lineID); l != nil {
		if qty < 1 {
			qty = 1
		}
		l.Quantity = qty
	}
}

// SetCustomization replaces the whole customization of a line.
func (c *Cart) SetCustomization(lineID string, set customization.Set) {
	if _, l := c.find(lineID); l != nil {
		l.Customization = set.Normalize()
	}
}

// RemoveItem deletes a line.
func (c *Cart) RemoveItem(lineID string) {
	if i, _ := c.find(lineID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.lines = nil
}

// Line returns a copy of the line with the given id.
func (c *Cart) Line(lineID string) (Line, bool) {
	if _, l := c.find(lineID); l != nil {
		return l.clone(), true
	}
	return Line{}, false
}

// Lines returns copies of all lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l.clone())
	}
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// ItemCount returns the sum of all line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) summary() pricing.Summary {
	totals := make([]pricing.Money, 0, len(c.lines))
	for _, l := range c.lines {
		totals = append(totals, l.Price().LineTotal)
	}
	return pricing.Compute(totals, c.vatRate)
}

// Subtotal is the sum of all line totals.
func (c *Cart) Subtotal() decimal.Decimal { return c.summary().Subtotal }

// VATAmount is the subtotal taxed at the cart's VAT rate, rounded to cents.
func (c *Cart) VATAmount() decimal.Decimal { return c.summary().VAT }

// Total is subtotal plus VAT, rounded to cents.
func (c *Cart) Total() decimal.Decimal { return c.summary().Total }

// state is the persisted form of a cart.
type state struct {
	VATRate decimal.Decimal `json:"vatRate"`
	Lines   []Line          `json:"lines"`
}

// MarshalJSON encodes the cart lines and VAT rate.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(state{VATRate: c.vatRate, Lines: c.Lines()})
}

// UnmarshalJSON restores a cart written by MarshalJSON. Lines with a
// quantity below one are dropped.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode cart: %w", err)
	}
	c.vatRate = st.VATRate
	c.lines = c.lines[:0]
	for i := range st.Lines {
		l := st.Lines[i]
		if l.Quantity < 1 || l.ID == "" {
			continue
		}
		l.Customization = l.Customization.Normalize()
		c.lines = append(c.lines, &l)
	}
	return nil
}
