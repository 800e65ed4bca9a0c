package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/customization"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Status tracks the lifecycle of a persisted order.
type Status string

const (
	StatusOpen   Status = "open"
	StatusEdited Status = "edited"
)

// Line is one persisted order line. UnitPrice is the base price snapshot
// taken when the line was rung up; customization deltas live in the payload.
type Line struct {
	Position      int             `json:"position"`
	MenuItemID    string          `json:"menuItemId"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	Customization json.RawMessage `json:"customization"`
}

// Order is a committed order with its lines.
type Order struct {
	ID        string          `json:"id"`
	Number    int64           `json:"number"`
	Status    Status          `json:"status"`
	VATRate   decimal.Decimal `json:"vatRate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	VATAmount decimal.Decimal `json:"vatAmount"`
	Total     decimal.Decimal `json:"total"`
	CreatedBy string          `json:"createdBy,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Lines     []Line          `json:"lines"`
}

// Persisted returns the order lines in the shape cart hydration expects.
func (o Order) Persisted() []cart.PersistedLine {
	out := make([]cart.PersistedLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, cart.PersistedLine{
			MenuItemID:    l.MenuItemID,
			Name:          l.Name,
			UnitPrice:     l.UnitPrice,
			Quantity:      l.Quantity,
			Customization: l.Customization,
		})
	}
	return out
}

// Draft is everything needed to write an order or replace its lines.
type Draft struct {
	VATRate   decimal.Decimal
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
	CreatedBy string
	Lines     []Line
	// CheckoutRef makes Create idempotent for one session state.
	CheckoutRef string
}

// DraftFromCart prices the cart and converts it into a Draft.
func DraftFromCart(c *cart.Cart, createdBy string) (Draft, error) {
	snap := c.Snapshot()
	persisted, err := c.Persisted()
	if err != nil {
		return Draft{}, fmt.Errorf("encode lines: %w", err)
	}
	lines := make([]Line, 0, len(persisted))
	for i, p := range persisted {
		lines = append(lines, Line{
			Position:      i + 1,
			MenuItemID:    p.MenuItemID,
			Name:          p.Name,
			UnitPrice:     p.UnitPrice,
			Quantity:      p.Quantity,
			LineTotal:     snap.Lines[i].LineTotal,
			Customization: p.Customization,
		})
	}
	return Draft{
		VATRate:   snap.VATRate,
		Subtotal:  snap.Subtotal,
		VATAmount: snap.VATAmount,
		Total:     snap.Total,
		CreatedBy: createdBy,
		Lines:     lines,
	}, nil
}

// TicketLine is one line on a kitchen ticket.
type TicketLine struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Notes    []string `json:"notes,omitempty"`
}

// Ticket is the event payload the kitchen worker prints.
type Ticket struct {
	OrderID string       `json:"orderId"`
	Number  int64        `json:"number"`
	Total   string       `json:"total"`
	Lines   []TicketLine `json:"lines"`
}

// NewTicket builds the kitchen ticket for o.
func NewTicket(o Order) Ticket {
	t := Ticket{OrderID: o.ID, Number: o.Number, Total: o.Total.StringFixed(2), Lines: make([]TicketLine, 0, len(o.Lines))}
	for _, l := range o.Lines {
		t.Lines = append(t.Lines, TicketLine{
			Name:     l.Name,
			Quantity: l.Quantity,
			Notes:    ticketNotes(customization.ParsePayload(l.Customization)),
		})
	}
	return t
}

func ticketNotes(set customization.Set) []string {
	var notes []string
	for _, r := range set.Removals {
		notes = append(notes, "no "+r.Name)
	}
	for _, a := range set.Additions {
		notes = append(notes, "+ "+a.Name)
	}
	for _, r := range set.Replacements {
		notes = append(notes, r.Group+": "+r.Name)
	}
	return notes
}

// EditedPayload is the order.edited event body.
type EditedPayload struct {
	Ticket         Ticket                 `json:"ticket"`
	Reconciliation pricing.Reconciliation `json:"reconciliation"`
}
