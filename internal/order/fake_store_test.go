package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/session"
)

type memStore struct {
	mu     sync.Mutex
	next   int64
	orders map[string]order.Order
	refs   map[string]string
}

func newMemStore() *memStore {
	return &memStore{next: 1000, orders: map[string]order.Order{}, refs: map[string]string{}}
}

func (m *memStore) Create(_ context.Context, d order.Draft) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.refs[d.CheckoutRef]; ok && d.CheckoutRef != "" {
		return m.orders[id], nil
	}
	id := fmt.Sprintf("order-%d", m.next)
	now := time.Now().UTC()
	o := order.Order{
		ID: id, Number: m.next, Status: order.StatusOpen,
		VATRate: d.VATRate, Subtotal: d.Subtotal, VATAmount: d.VATAmount, Total: d.Total,
		CreatedBy: d.CreatedBy, CreatedAt: now, UpdatedAt: now, Lines: d.Lines,
	}
	m.next++
	m.orders[id] = o
	if d.CheckoutRef != "" {
		m.refs[d.CheckoutRef] = id
	}
	return o, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// flakySessions fails the next Save after failNext is set.
type flakySessions struct {
	*session.MemoryStore
	mu       sync.Mutex
	failNext bool
}

func (f *flakySessions) Save(ctx context.Context, s *session.Session) error {
	f.mu.Lock()
	fail := f.failNext
	f.failNext = false
	f.mu.Unlock()
	if fail {
		return errors.New("redis down")
	}
	return f.MemoryStore.Save(ctx, s)
}

func (f *flakySessions) failNextSave() {
	f.mu.Lock()
	f.failNext = true
	f.mu.Unlock()
}

func (m *memStore) Get(_ context.Context, id string) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for n := m.next - 1; n >= 1000 && len(out) < limit; n-- {
		if offset > 0 {
			offset--
			continue
		}
		o := m.orders[fmt.Sprintf("order-%d", n)]
		o.Lines = nil
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) ReplaceLines(_ context.Context, id string, expected decimal.Decimal, d order.Draft) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	if !o.Total.Equal(expected) {
		return order.Order{}, order.ErrConflict
	}
	o.Status = order.StatusEdited
	o.VATRate, o.Subtotal, o.VATAmount, o.Total = d.VATRate, d.Subtotal, d.VATAmount, d.Total
	o.Lines = d.Lines
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return o, nil
}

// forceTotal simulates another terminal editing the order.
func (m *memStore) forceTotal(id string, total decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Total = total
	m.orders[id] = o
}

type emitted struct {
	topic   string
	orderID string
	payload any
}

type captureEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (c *captureEmitter) Emit(_ context.Context, topic, aggregateID string, payload any) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{topic: topic, orderID: aggregateID, payload: payload})
	return events.Event{Topic: topic, AggregateID: aggregateID}, nil
}
