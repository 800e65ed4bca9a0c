package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/customization"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

var (
	// ErrInvalidInput wraps request values the service refuses.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotEditing is returned when reconciling a session that was not
	// opened from a persisted order.
	ErrNotEditing = errors.New("session does not edit an order")
)

// MaxQuantity bounds a single line quantity entered on the tablet.
const MaxQuantity = 999

// Catalog is the menu lookup the session service needs.
type Catalog interface {
	SellableItem(ctx context.Context, id string) (catalog.MenuItem, error)
	Options(ctx context.Context, menuItemID string) ([]catalog.Option, error)
}

// Locker serialises work on a key across API replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store   Store
	Catalog Catalog
	Locker  Locker
	LockTTL time.Duration
	VATRate decimal.Decimal
	Logger  zerolog.Logger
	Now     func() time.Time
	NewID   func() string
}

// Service runs cart operations against stored sessions.
type Service struct {
	store   Store
	catalog Catalog
	locker  Locker
	lockTTL time.Duration
	vatRate decimal.Decimal
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewService constructs a session service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	if cfg.VATRate.IsNegative() {
		return nil, fmt.Errorf("session: negative vat rate %s", cfg.VATRate)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &Service{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		locker:  cfg.Locker,
		lockTTL: lockTTL,
		vatRate: cfg.VATRate,
		logger:  cfg.Logger,
		now:     now,
		newID:   newID,
	}, nil
}

// VATRate returns the default VAT percentage for new sessions.
func (s *Service) VATRate() decimal.Decimal { return s.vatRate }

// Open starts an empty session. A nil vatRate uses the configured default.
func (s *Service) Open(ctx context.Context, openedBy string, vatRate *decimal.Decimal) (*Session, error) {
	rate := s.vatRate
	if vatRate != nil {
		if vatRate.IsNegative() {
			return nil, fmt.Errorf("%w: vat rate must not be negative", ErrInvalidInput)
		}
		rate = *vatRate
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        s.newID(),
		OpenedBy:  openedBy,
		Cart:      cart.New(rate),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	obs.Ctx(ctx, s.logger).Debug().Str("session_id", sess.ID).Msg("session opened")
	return sess, nil
}

// OpenFromOrder starts a session holding the lines of a persisted order so
// they can be edited. The order's VAT rate and charged total are kept for
// recomputation and reconciliation.
func (s *Service) OpenFromOrder(ctx context.Context, openedBy, orderID string, vatRate, chargedTotal decimal.Decimal, lines []cart.PersistedLine) (*Session, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	c := cart.New(vatRate)
	c.Hydrate(lines)
	total := chargedTotal
	now := s.now().UTC()
	sess := &Session{
		ID:            s.newID(),
		OpenedBy:      openedBy,
		SourceOrderID: orderID,
		PreviousTotal: &total,
		Cart:          c,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	obs.Ctx(ctx, s.logger).Debug().
		Str("session_id", sess.ID).
		Str("order_id", orderID).
		Int("lines", c.Len()).
		Msg("session hydrated from order")
	return sess, nil
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.store.Load(ctx, id)
}

// Discard deletes a session.
func (s *Service) Discard(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.withLock(ctx, id, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
}

// AddItem adds quantity units of a menu item and returns the affected line id.
func (s *Service) AddItem(ctx context.Context, id, menuItemID string, quantity int) (*Session, string, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || quantity > MaxQuantity {
		return nil, "", fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, MaxQuantity)
	}
	item, err := s.catalog.SellableItem(ctx, menuItemID)
	if err != nil {
		return nil, "", err
	}
	var lineID string
	sess, err := s.mutate(ctx, id, "add_item", func(_ context.Context, c *cart.Cart) error {
		lineID = c.AddItem(item.Snapshot())
		for i := 1; i < quantity; i++ {
			c.IncrementItem(lineID)
		}
		return checkLineQuantity(c, lineID)
	})
	if err != nil {
		return nil, "", err
	}
	return sess, lineID, nil
}

// Increment adds one unit to a line.
func (s *Service) Increment(ctx context.Context, id, lineID string) (*Session, error) {
	return s.mutate(ctx, id, "increment", func(_ context.Context, c *cart.Cart) error {
		c.IncrementItem(lineID)
		return checkLineQuantity(c, lineID)
	})
}

// checkLineQuantity rejects a mutation that left a line above MaxQuantity.
// The cart is discarded unsaved when it fails.
func checkLineQuantity(c *cart.Cart, lineID string) error {
	if l, ok := c.Line(lineID); ok && l.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must not exceed %d", ErrInvalidInput, MaxQuantity)
	}
	return nil
}

// Decrement removes one unit from a line, dropping it at zero.
func (s *Service) Decrement(ctx context.Context, id, lineID string) (*Session, error) {
	return s.mutate(ctx, id, "decrement", func(_ context.Context, c *cart.Cart) error {
		c.DecrementItem(lineID)
		return nil
	})
}

// SetQuantity sets a line quantity; values below one are clamped.
func (s *Service) SetQuantity(ctx context.Context, id, lineID string, qty int) (*Session, error) {
	if qty > MaxQuantity {
		return nil, fmt.Errorf("%w: quantity must not exceed %d", ErrInvalidInput, MaxQuantity)
	}
	return s.mutate(ctx, id, "set_quantity", func(_ context.Context, c *cart.Cart) error {
		c.SetQuantity(lineID, qty)
		return nil
	})
}

// CustomizationInput selects a line's customization either by catalog
// option ids or as an explicit set. Neither clears the customization.
type CustomizationInput struct {
	OptionIDs []string           `json:"optionIds"`
	Set       *customization.Set `json:"set"`
}

// SetCustomization replaces a line's whole customization.
func (s *Service) SetCustomization(ctx context.Context, id, lineID string, in CustomizationInput) (*Session, error) {
	if in.OptionIDs != nil && in.Set != nil {
		return nil, fmt.Errorf("%w: send either optionIds or set", ErrInvalidInput)
	}
	return s.mutate(ctx, id, "set_customization", func(ctx context.Context, c *cart.Cart) error {
		line, ok := c.Line(lineID)
		if !ok {
			return nil
		}
		var set customization.Set
		switch {
		case in.OptionIDs != nil:
			options, err := s.catalog.Options(ctx, line.MenuItemID)
			if err != nil {
				return err
			}
			set = catalog.BuildCustomization(options, in.OptionIDs)
		case in.Set != nil:
			set = *in.Set
		}
		c.SetCustomization(lineID, set)
		return nil
	})
}

// Remove deletes a line.
func (s *Service) Remove(ctx context.Context, id, lineID string) (*Session, error) {
	return s.mutate(ctx, id, "remove_item", func(_ context.Context, c *cart.Cart) error {
		c.RemoveItem(lineID)
		return nil
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, "clear", func(_ context.Context, c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// Reconcile compares the session's cart with the total its source order
// was charged.
func (s *Service) Reconcile(ctx context.Context, id string) (pricing.Reconciliation, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return pricing.Reconciliation{}, err
	}
	rec, ok := sess.Reconcile()
	if !ok {
		return pricing.Reconciliation{}, ErrNotEditing
	}
	return rec, nil
}

// Mutate runs fn on the session's cart under the session lock and saves the
// result. It is exported for collaborators such as checkout that need a
// consistent read-modify-write on a session.
func (s *Service) Mutate(ctx context.Context, id, op string, fn func(context.Context, *Session) error) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	var out *Session
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		sess, err := s.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, sess); err != nil {
			return err
		}
		sess.Revision++
		sess.UpdatedAt = s.now().UTC()
		if err := s.store.Save(ctx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	obs.ObserveCartMutation(op, err)
	logger := obs.Ctx(ctx, s.logger)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Error().Err(err).Str("session_id", id).Str("op", op).Msg("session mutation failed")
		}
		return nil, err
	}
	logger.Debug().
		Str("session_id", id).
		Str("op", op).
		Int("lines", out.Cart.Len()).
		Str("total", out.Cart.Total().StringFixed(2)).
		Msg("session mutated")
	return out, nil
}

func (s *Service) mutate(ctx context.Context, id, op string, fn func(context.Context, *cart.Cart) error) (*Session, error) {
	return s.Mutate(ctx, id, op, func(ctx context.Context, sess *Session) error {
		return fn(ctx, sess.Cart)
	})
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, lock.SessionKey(id), s.lockTTL, fn)
}
