package order_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/session"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type menu map[string]catalog.MenuItem

func (m menu) SellableItem(_ context.Context, id string) (catalog.MenuItem, error) {
	item, ok := m[id]
	if !ok {
		return catalog.MenuItem{}, catalog.ErrNotFound
	}
	return item, nil
}

func (m menu) Options(context.Context, string) ([]catalog.Option, error) {
	return []catalog.Option{
		{ID: "cheese", Group: "extras", Label: "Cheese", Kind: "addition", PriceDelta: dec("3.00")},
		{ID: "no-onion", Group: "toppings", Label: "Onion", Kind: "removal"},
	}, nil
}

type harness struct {
	orders   *order.Service
	sessions *session.Service
	store    *memStore
	events   *captureEmitter
}

func newHarness(t *testing.T) harness {
	t.Helper()
	return newHarnessWithSessions(t, session.NewMemoryStore())
}

func newHarnessWithSessions(t *testing.T, store session.Store) harness {
	t.Helper()
	sessions, err := session.NewService(session.ServiceConfig{
		Store: store,
		Catalog: menu{
			"burger": {ID: "burger", Name: "Burger", BasePrice: dec("25.00"), Customizable: true, Active: true},
			"fries":  {ID: "fries", Name: "Fries", BasePrice: dec("10.00"), Active: true},
		},
		VATRate: dec("15"),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	orderStore := newMemStore()
	emitter := &captureEmitter{}
	orders, err := order.NewService(order.ServiceConfig{Store: orderStore, Sessions: sessions, Events: emitter, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return harness{orders: orders, sessions: sessions, store: orderStore, events: emitter}
}

// ringUp opens a session with two burgers with cheese: 56.00 + 8.40 VAT.
func (h harness) ringUp(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	sess, err := h.sessions.Open(ctx, "cashier-1", nil)
	require.NoError(t, err)
	_, lineID, err := h.sessions.AddItem(ctx, sess.ID, "burger", 2)
	require.NoError(t, err)
	_, err = h.sessions.SetCustomization(ctx, sess.ID, lineID, session.CustomizationInput{OptionIDs: []string{"cheese", "no-onion"}})
	require.NoError(t, err)
	return sess.ID
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := order.NewService(order.ServiceConfig{})
	require.Error(t, err)
	_, err = order.NewService(order.ServiceConfig{Store: newMemStore()})
	require.Error(t, err)
}

func TestCheckoutPersistsAndClearsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sessionID := h.ringUp(t)

	o, err := h.orders.Checkout(ctx, sessionID, "cashier-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), o.Number)
	require.Equal(t, "56.00", o.Subtotal.StringFixed(2))
	require.Equal(t, "8.40", o.VATAmount.StringFixed(2))
	require.Equal(t, "64.40", o.Total.StringFixed(2))
	require.Len(t, o.Lines, 1)
	require.Equal(t, "25.00", o.Lines[0].UnitPrice.StringFixed(2))
	require.Equal(t, "56.00", o.Lines[0].LineTotal.StringFixed(2))
	require.Equal(t, 1, o.Lines[0].Position)

	sess, err := h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, sess.Cart.IsEmpty())

	require.Len(t, h.events.events, 1)
	require.Equal(t, events.TopicOrderCreated, h.events.events[0].topic)
	ticket, ok := h.events.events[0].payload.(order.Ticket)
	require.True(t, ok)
	require.Equal(t, []string{"no Onion", "+ Cheese"}, ticket.Lines[0].Notes)

	_, err = h.orders.Checkout(ctx, sessionID, "cashier-1")
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCheckoutRetryAfterFailedSessionSaveReusesOrder(t *testing.T) {
	ctx := context.Background()
	sessions := &flakySessions{MemoryStore: session.NewMemoryStore()}
	h := newHarnessWithSessions(t, sessions)
	sessionID := h.ringUp(t)

	sessions.failNextSave()
	_, err := h.orders.Checkout(ctx, sessionID, "cashier-1")
	require.ErrorContains(t, err, "redis down")
	require.Equal(t, 1, h.store.count())

	sess, err := h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, sess.Cart.IsEmpty())

	o, err := h.orders.Checkout(ctx, sessionID, "cashier-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), o.Number)
	require.Equal(t, "64.40", o.Total.StringFixed(2))
	require.Equal(t, 1, h.store.count())

	sess, err = h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, sess.Cart.IsEmpty())

	// The next cart rung up on the same session is a new order.
	_, _, err = h.sessions.AddItem(ctx, sessionID, "fries", 1)
	require.NoError(t, err)
	next, err := h.orders.Checkout(ctx, sessionID, "cashier-1")
	require.NoError(t, err)
	require.Equal(t, int64(1001), next.Number)
	require.Equal(t, 2, h.store.count())
}

func TestEditRoundTripHydratesSameTotals(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o, err := h.orders.Checkout(ctx, h.ringUp(t), "cashier-1")
	require.NoError(t, err)

	edit, err := h.orders.BeginEdit(ctx, o.ID, "manager-1")
	require.NoError(t, err)
	require.Equal(t, o.ID, edit.SourceOrderID)
	require.Equal(t, "64.40", edit.Cart.Total().StringFixed(2))

	rec, err := h.sessions.Reconcile(ctx, edit.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.OutcomeNone, rec.Outcome)

	_, err = h.orders.Checkout(ctx, edit.ID, "manager-1")
	require.ErrorIs(t, err, order.ErrEditSession)
}

func TestCommitEditReportsAdditionalPayment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o, err := h.orders.Checkout(ctx, h.ringUp(t), "cashier-1")
	require.NoError(t, err)
	edit, err := h.orders.BeginEdit(ctx, o.ID, "manager-1")
	require.NoError(t, err)

	_, _, err = h.sessions.AddItem(ctx, edit.ID, "fries", 1)
	require.NoError(t, err)

	res, err := h.orders.CommitEdit(ctx, edit.ID, "manager-1")
	require.NoError(t, err)
	require.Equal(t, pricing.OutcomeAdditional, res.Reconciliation.Outcome)
	require.Equal(t, "11.50", res.Reconciliation.Amount.StringFixed(2))
	require.Equal(t, "75.90", res.Order.Total.StringFixed(2))
	require.Equal(t, order.StatusEdited, res.Order.Status)

	stored, err := h.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)

	// The session now reconciles against the committed total.
	rec, err := h.sessions.Reconcile(ctx, edit.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.OutcomeNone, rec.Outcome)

	last := h.events.events[len(h.events.events)-1]
	require.Equal(t, events.TopicOrderEdited, last.topic)
	require.Equal(t, o.ID, last.orderID)
	payload, ok := last.payload.(order.EditedPayload)
	require.True(t, ok)
	require.Equal(t, pricing.OutcomeAdditional, payload.Reconciliation.Outcome)
	require.Equal(t, "75.90", payload.Ticket.Total)
}

func TestCommitEditReportsRefund(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o, err := h.orders.Checkout(ctx, h.ringUp(t), "cashier-1")
	require.NoError(t, err)
	edit, err := h.orders.BeginEdit(ctx, o.ID, "manager-1")
	require.NoError(t, err)

	lineID := edit.Cart.Lines()[0].ID
	_, err = h.sessions.Decrement(ctx, edit.ID, lineID)
	require.NoError(t, err)

	res, err := h.orders.CommitEdit(ctx, edit.ID, "manager-1")
	require.NoError(t, err)
	require.Equal(t, pricing.OutcomeRefund, res.Reconciliation.Outcome)
	require.Equal(t, "32.20", res.Reconciliation.Amount.StringFixed(2))
}

func TestCommitEditDetectsConcurrentChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o, err := h.orders.Checkout(ctx, h.ringUp(t), "cashier-1")
	require.NoError(t, err)
	edit, err := h.orders.BeginEdit(ctx, o.ID, "manager-1")
	require.NoError(t, err)

	h.store.forceTotal(o.ID, dec("10.00"))
	_, err = h.orders.CommitEdit(ctx, edit.ID, "manager-1")
	require.ErrorIs(t, err, order.ErrConflict)
}

func TestCommitEditRequiresEditSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.orders.CommitEdit(ctx, h.ringUp(t), "cashier-1")
	require.ErrorIs(t, err, session.ErrNotEditing)

	_, err = h.orders.BeginEdit(ctx, "missing", "manager-1")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestCommitEditRejectsEmptyCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o, err := h.orders.Checkout(ctx, h.ringUp(t), "cashier-1")
	require.NoError(t, err)
	edit, err := h.orders.BeginEdit(ctx, o.ID, "manager-1")
	require.NoError(t, err)
	_, err = h.sessions.Clear(ctx, edit.ID)
	require.NoError(t, err)

	_, err = h.orders.CommitEdit(ctx, edit.ID, "manager-1")
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestListDefaultsLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		_, err := h.orders.Checkout(ctx, h.ringUp(t), "cashier-1")
		require.NoError(t, err)
	}
	orders, err := h.orders.List(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, int64(1001), orders[0].Number)
}
