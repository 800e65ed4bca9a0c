package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-pos/internal/customization"
	"github.com/noah-isme/backend-pos/internal/db"
)

type seedOption struct {
	Group string
	Label string
	Kind  customization.Kind
	Delta string
}

type seedItem struct {
	Name         string
	Category     string
	Price        string
	Customizable bool
	Options      []seedOption
}

func demoMenu() []seedItem {
	return []seedItem{
		{Name: "Classic Burger", Category: "burgers", Price: "25.00", Customizable: true, Options: []seedOption{
			{Group: "toppings", Label: "Onion", Kind: customization.KindRemoval},
			{Group: "toppings", Label: "Pickles", Kind: customization.KindRemoval},
			{Group: "extras", Label: "Cheese", Kind: customization.KindAddition, Delta: "3.00"},
			{Group: "extras", Label: "Bacon", Kind: customization.KindAddition, Delta: "4.50"},
			{Group: "bread", Label: "Brioche Bun", Kind: customization.KindReplacement, Delta: "2.00"},
			{Group: "bread", Label: "Lettuce Wrap", Kind: customization.KindReplacement, Delta: "-1.00"},
		}},
		{Name: "Chicken Shawarma", Category: "wraps", Price: "18.00", Customizable: true, Options: []seedOption{
			{Group: "sauce", Label: "Garlic Sauce", Kind: customization.KindRemoval},
			{Group: "extras", Label: "Extra Chicken", Kind: customization.KindAddition, Delta: "6.00"},
		}},
		{Name: "Fries", Category: "sides", Price: "10.00"},
		{Name: "Cola", Category: "drinks", Price: "6.00"},
		{Name: "Water", Category: "drinks", Price: "2.00"},
	}
}

func newSeedCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo menu; existing items with the same name are left alone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				return errors.New("database url is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pool, err := db.Connect(ctx, db.PoolConfig{URL: databaseURL, ApplicationName: "posctl"})
			if err != nil {
				return err
			}
			defer pool.Close()

			inserted := 0
			err = db.InTx(ctx, pool, func(tx pgx.Tx) error {
				for _, item := range demoMenu() {
					ok, err := seedMenuItem(ctx, tx, item)
					if err != nil {
						return fmt.Errorf("seed %s: %w", item.Name, err)
					}
					if ok {
						inserted++
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d menu items\n", inserted)
			return nil
		},
	}
	databaseURLFlag(cmd, &databaseURL)
	return cmd
}

func seedMenuItem(ctx context.Context, tx pgx.Tx, item seedItem) (bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO menu_items (name, category, base_price, customizable)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM menu_items WHERE name = $1)
		RETURNING id::text`,
		item.Name, item.Category, decimal.RequireFromString(item.Price), item.Customizable,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for i, opt := range item.Options {
		delta := decimal.Zero
		if opt.Delta != "" {
			delta = decimal.RequireFromString(opt.Delta)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO customization_options (menu_item_id, option_group, label, kind, price_delta, position)
			VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
			id, opt.Group, opt.Label, string(opt.Kind), delta, i,
		); err != nil {
			return false, err
		}
	}
	return true, nil
}
