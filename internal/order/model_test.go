package order

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/customization"
)

func TestDraftFromCartMatchesSnapshot(t *testing.T) {
	c := cart.New(decimal.NewFromInt(15))
	burger := c.AddItem(cart.Item{MenuItemID: "burger", Name: "Burger", BasePrice: decimal.RequireFromString("25.00")})
	c.SetCustomization(burger, customization.Set{Additions: []customization.Addition{{Name: "Cheese", Price: decimal.RequireFromString("3.00")}}})
	c.AddItem(cart.Item{MenuItemID: "fries", Name: "Fries", BasePrice: decimal.RequireFromString("10.00")})

	d, err := DraftFromCart(c, "cashier-1")
	require.NoError(t, err)
	require.Len(t, d.Lines, 2)
	require.Equal(t, "28.00", d.Lines[0].LineTotal.StringFixed(2))
	require.Equal(t, "25.00", d.Lines[0].UnitPrice.StringFixed(2))
	require.Equal(t, 2, d.Lines[1].Position)
	require.Equal(t, "38.00", d.Subtotal.StringFixed(2))
	require.Equal(t, "5.70", d.VATAmount.StringFixed(2))
	require.Equal(t, "43.70", d.Total.StringFixed(2))
	require.True(t, json.Valid(d.Lines[1].Customization))
}

func TestPersistedRoundTripsThroughHydrate(t *testing.T) {
	o := Order{
		VATRate: decimal.NewFromInt(15),
		Lines: []Line{{
			MenuItemID:    "burger",
			Name:          "Burger",
			UnitPrice:     decimal.RequireFromString("25.00"),
			Quantity:      2,
			Customization: json.RawMessage(`"{\"extras\":[\"Pickles\",{\"label\":\"Cheese\",\"price\":3}]}"`),
		}},
	}
	c := cart.New(o.VATRate)
	c.Hydrate(o.Persisted())
	require.Equal(t, "56.00", c.Subtotal().StringFixed(2))
	require.Equal(t, "64.40", c.Total().StringFixed(2))
}

func TestNewTicketNotes(t *testing.T) {
	o := Order{
		ID:     "o-1",
		Number: 1042,
		Total:  decimal.RequireFromString("30"),
		Lines: []Line{{
			Name:          "Burger",
			Quantity:      1,
			Customization: json.RawMessage(`{"removed":["Onion"],"substitutions":[{"from":"bread","to":"Brioche","delta":2}]}`),
		}},
	}
	ticket := NewTicket(o)
	require.Equal(t, "30.00", ticket.Total)
	require.Equal(t, []string{"no Onion", "bread: Brioche"}, ticket.Lines[0].Notes)
}
