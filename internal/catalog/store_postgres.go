package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-pos/internal/customization"
	"github.com/noah-isme/backend-pos/internal/db"
)

// PGStore reads the menu from Postgres.
type PGStore struct {
	DB db.DBTX
}

const menuItemColumns = `id::text, name, category, base_price, customizable, active`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.BasePrice, &m.Customizable, &m.Active)
	return m, err
}

// GetMenuItem loads one menu item by id.
func (s PGStore) GetMenuItem(ctx context.Context, id string) (MenuItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return MenuItem{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1::uuid`, id)
	item, err := scanMenuItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MenuItem{}, ErrNotFound
		}
		return MenuItem{}, err
	}
	return item, nil
}

// ListMenuItems returns active menu items ordered by category and name.
func (s PGStore) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE active ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListOptions returns the customization options for a menu item.
func (s PGStore) ListOptions(ctx context.Context, menuItemID string) ([]Option, error) {
	if _, err := uuid.Parse(menuItemID); err != nil {
		return []Option{}, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id::text, menu_item_id::text, option_group, label, kind, price_delta
		FROM customization_options
		WHERE menu_item_id = $1::uuid
		ORDER BY position, label`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var (
			opt  Option
			kind string
		)
		if err := rows.Scan(&opt.ID, &opt.MenuItemID, &opt.Group, &opt.Label, &kind, &opt.PriceDelta); err != nil {
			return nil, err
		}
		opt.Kind = customization.Kind(kind)
		options = append(options, opt)
	}
	return options, rows.Err()
}
