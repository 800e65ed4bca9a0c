package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/db"
)

// Pool is what PGStore needs from pgxpool.Pool.
type Pool interface {
	db.DBTX
	db.TxBeginner
}

// PGStore persists orders in Postgres.
type PGStore struct {
	DB Pool
}

const orderColumns = `id::text, number, status, vat_rate, subtotal, vat_amount, total, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.Number, &status, &o.VATRate, &o.Subtotal, &o.VATAmount, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

// validID reports whether id can address an orders row. Malformed ids are
// answered with ErrNotFound without a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create writes the order and its lines in one transaction. A draft whose
// CheckoutRef was already committed returns that order instead of a new one.
func (s PGStore) Create(ctx context.Context, d Draft) (Order, error) {
	var out Order
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `
			INSERT INTO orders (status, vat_rate, subtotal, vat_amount, total, created_by, checkout_ref)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
			ON CONFLICT (checkout_ref) DO NOTHING
			RETURNING `+orderColumns,
			string(StatusOpen), d.VATRate, d.Subtotal, d.VATAmount, d.Total, d.CreatedBy, d.CheckoutRef))
		if errors.Is(err, pgx.ErrNoRows) && d.CheckoutRef != "" {
			existing, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE checkout_ref = $1`, d.CheckoutRef))
			if err != nil {
				return fmt.Errorf("load committed checkout: %w", err)
			}
			if existing.Lines, err = loadLines(ctx, tx, existing.ID); err != nil {
				return err
			}
			out = existing
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := insertLines(ctx, tx, o.ID, d.Lines); err != nil {
			return err
		}
		o.Lines = d.Lines
		out = o
		return nil
	})
	return out, err
}

// Get loads an order with its lines.
func (s PGStore) Get(ctx context.Context, id string) (Order, error) {
	if !validID(id) {
		return Order{}, ErrNotFound
	}
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	lines, err := loadLines(ctx, s.DB, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Lines = lines
	return o, nil
}

// List returns the most recent orders without their lines.
func (s PGStore) List(ctx context.Context, limit, offset int) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ReplaceLines overwrites an order's lines and totals. The stored total must
// still equal expectedTotal, otherwise ErrConflict is returned.
func (s PGStore) ReplaceLines(ctx context.Context, id string, expectedTotal decimal.Decimal, d Draft) (Order, error) {
	if !validID(id) {
		return Order{}, ErrNotFound
	}
	var out Order
	err := db.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		var current decimal.Decimal
		err := tx.QueryRow(ctx, `SELECT total FROM orders WHERE id = $1::uuid FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if !current.Equal(expectedTotal) {
			return ErrConflict
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1::uuid`, id); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		o, err := scanOrder(tx.QueryRow(ctx, `
			UPDATE orders
			SET status = $2, vat_rate = $3, subtotal = $4, vat_amount = $5, total = $6, updated_at = now()
			WHERE id = $1::uuid
			RETURNING `+orderColumns,
			id, string(StatusEdited), d.VATRate, d.Subtotal, d.VATAmount, d.Total))
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := insertLines(ctx, tx, o.ID, d.Lines); err != nil {
			return err
		}
		o.Lines = d.Lines
		out = o
		return nil
	})
	return out, err
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID string, lines []Line) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, position, menu_item_id, name, unit_price, quantity, line_total, customization)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
			orderID, l.Position, l.MenuItemID, l.Name, l.UnitPrice, l.Quantity, l.LineTotal, []byte(l.Customization))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

func loadLines(ctx context.Context, q db.DBTX, orderID string) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT position, menu_item_id, name, unit_price, quantity, line_total, customization
		FROM order_lines
		WHERE order_id = $1::uuid
		ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var (
			l   Line
			raw []byte
		)
		if err := rows.Scan(&l.Position, &l.MenuItemID, &l.Name, &l.UnitPrice, &l.Quantity, &l.LineTotal, &raw); err != nil {
			return nil, err
		}
		l.Customization = raw
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
