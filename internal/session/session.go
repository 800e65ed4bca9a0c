package session

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Session is one tablet's order in progress. A session opened from a
// persisted order remembers that order and the total it was charged.
type Session struct {
	ID            string           `json:"id"`
	OpenedBy      string           `json:"openedBy,omitempty"`
	SourceOrderID string           `json:"sourceOrderId,omitempty"`
	PreviousTotal *decimal.Decimal `json:"previousTotal,omitempty"`
	Cart          *cart.Cart       `json:"cart"`
	// Revision counts saved mutations. A cart state that was never saved
	// keeps the revision it was loaded with.
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ref identifies the session at its current revision.
func (s *Session) Ref() string {
	return fmt.Sprintf("%s@%d", s.ID, s.Revision)
}

// Editing reports whether the session edits a persisted order.
func (s *Session) Editing() bool {
	return s.SourceOrderID != "" && s.PreviousTotal != nil
}

// Reconcile compares the edited cart with the total the source order was
// charged. ok is false for sessions that do not edit an order.
func (s *Session) Reconcile() (pricing.Reconciliation, bool) {
	if !s.Editing() {
		return pricing.Reconciliation{}, false
	}
	return pricing.Reconcile(*s.PreviousTotal, s.Cart.Total()), true
}

// View is the session as shown on the tablet.
type View struct {
	ID             string                  `json:"id"`
	OpenedBy       string                  `json:"openedBy,omitempty"`
	SourceOrderID  string                  `json:"sourceOrderId,omitempty"`
	PreviousTotal  *decimal.Decimal        `json:"previousTotal,omitempty"`
	Cart           cart.Snapshot           `json:"cart"`
	Reconciliation *pricing.Reconciliation `json:"reconciliation,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// View renders the session with priced lines and, when editing, the pending
// reconciliation.
func (s *Session) View() View {
	v := View{
		ID:            s.ID,
		OpenedBy:      s.OpenedBy,
		SourceOrderID: s.SourceOrderID,
		PreviousTotal: s.PreviousTotal,
		Cart:          s.Cart.Snapshot(),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if rec, ok := s.Reconcile(); ok {
		v.Reconciliation = &rec
	}
	return v
}
