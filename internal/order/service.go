package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/session"
)

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when committing a session without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrEditSession is returned when checking out a session that edits an
	// existing order; such sessions are committed with CommitEdit.
	ErrEditSession = errors.New("session edits an existing order")
	// ErrConflict indicates the order changed since the edit session opened.
	ErrConflict = errors.New("order changed since edit started")
)

// Store persists orders.
type Store interface {
	Create(ctx context.Context, d Draft) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	ReplaceLines(ctx context.Context, id string, expectedTotal decimal.Decimal, d Draft) (Order, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    Store
	Sessions *session.Service
	Events   Emitter
	Logger   zerolog.Logger
}

// Service commits sessions as orders and runs the order edit flow.
type Service struct {
	store    Store
	sessions *session.Service
	events   Emitter
	logger   zerolog.Logger
}

// NewService constructs an order service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("order: store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("order: session service is required")
	}
	return &Service{store: cfg.Store, sessions: cfg.Sessions, events: cfg.Events, logger: cfg.Logger}, nil
}

// EditResult is the outcome of committing an edit session.
type EditResult struct {
	Order          Order                  `json:"order"`
	Reconciliation pricing.Reconciliation `json:"reconciliation"`
}

// Get returns a persisted order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Order{}, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// List returns recent orders, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	orders, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// Checkout persists the session cart as a new order and empties the cart so
// the tablet can start the next order on the same session. The order is keyed
// on the session revision, so a retry after the cart failed to clear returns
// the order already committed.
func (s *Service) Checkout(ctx context.Context, sessionID, userID string) (Order, error) {
	var created Order
	_, err := s.sessions.Mutate(ctx, sessionID, "checkout", func(ctx context.Context, sess *session.Session) error {
		if sess.Editing() {
			return ErrEditSession
		}
		if sess.Cart.IsEmpty() {
			return ErrEmptyCart
		}
		draft, err := DraftFromCart(sess.Cart, userID)
		if err != nil {
			return err
		}
		draft.CheckoutRef = sess.Ref()
		created, err = s.store.Create(ctx, draft)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		sess.Cart.Clear()
		return nil
	})
	total, _ := created.Total.Float64()
	obs.ObserveCheckout(total, err)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.TopicOrderCreated, created.ID, NewTicket(created))
	obs.Ctx(ctx, s.logger).Info().
		Str("order_id", created.ID).
		Int64("number", created.Number).
		Str("total", created.Total.StringFixed(2)).
		Msg("order checked out")
	return created, nil
}

// BeginEdit loads a persisted order into a new session for editing.
func (s *Service) BeginEdit(ctx context.Context, orderID, userID string) (*session.Session, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.sessions.OpenFromOrder(ctx, userID, o.ID, o.VATRate, o.Total, o.Persisted())
}

// CommitEdit writes an edit session back onto its source order and returns
// what the cashier has to collect or refund.
func (s *Service) CommitEdit(ctx context.Context, sessionID, userID string) (EditResult, error) {
	var result EditResult
	_, err := s.sessions.Mutate(ctx, sessionID, "commit_edit", func(ctx context.Context, sess *session.Session) error {
		rec, ok := sess.Reconcile()
		if !ok {
			return session.ErrNotEditing
		}
		if sess.Cart.IsEmpty() {
			return ErrEmptyCart
		}
		draft, err := DraftFromCart(sess.Cart, userID)
		if err != nil {
			return err
		}
		updated, err := s.store.ReplaceLines(ctx, sess.SourceOrderID, *sess.PreviousTotal, draft)
		if err != nil {
			return err
		}
		newTotal := updated.Total
		sess.PreviousTotal = &newTotal
		result = EditResult{Order: updated, Reconciliation: rec}
		return nil
	})
	if err != nil {
		return EditResult{}, err
	}
	obs.ObserveReconciliation(string(result.Reconciliation.Outcome))
	s.emit(ctx, events.TopicOrderEdited, result.Order.ID, EditedPayload{
		Ticket:         NewTicket(result.Order),
		Reconciliation: result.Reconciliation,
	})
	obs.Ctx(ctx, s.logger).Info().
		Str("order_id", result.Order.ID).
		Str("outcome", string(result.Reconciliation.Outcome)).
		Str("amount", result.Reconciliation.Amount.StringFixed(2)).
		Msg("order edit committed")
	return result, nil
}

// emit publishes an event. The order is already committed, so failures are
// logged rather than returned.
func (s *Service) emit(ctx context.Context, topic, orderID string, payload any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, orderID, payload); err != nil {
		obs.Ctx(ctx, s.logger).Error().Err(err).Str("topic", topic).Str("order_id", orderID).Msg("emit order event")
	}
}
