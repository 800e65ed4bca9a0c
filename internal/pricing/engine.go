package pricing

import "github.com/shopspring/decimal"

// Money is a currency amount. Values are rounded to two places at the edges
// where the order engine reports them.
type Money = decimal.Decimal

// Tolerance is the band inside which two totals are considered equal.
var Tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(v Money) Money {
	return v.Round(2)
}

// Line is the priced result for one cart line.
type Line struct {
	UnitPrice Money
	LineTotal Money
}

// PriceLine derives the unit price and line total for a snapshot base price,
// the price deltas of its customization and a quantity. Unit price never goes
// below zero and quantity is floored at one.
func PriceLine(base Money, additions []Money, replacements []Money, qty int) Line {
	unit := base
	for _, d := range additions {
		unit = unit.Add(d)
	}
	for _, d := range replacements {
		unit = unit.Add(d)
	}
	if unit.IsNegative() {
		unit = decimal.Zero
	}
	if qty < 1 {
		qty = 1
	}
	return Line{
		UnitPrice: unit,
		LineTotal: Round2(unit.Mul(decimal.NewFromInt(int64(qty)))),
	}
}

// Summary aggregates computed cart totals.
type Summary struct {
	Subtotal Money
	VAT      Money
	Total    Money
}

// Compute sums line totals and applies a VAT percentage (15 means 15%).
func Compute(lineTotals []Money, vatRate Money) Summary {
	subtotal := decimal.Zero
	for _, t := range lineTotals {
		subtotal = subtotal.Add(t)
	}
	if vatRate.IsNegative() {
		vatRate = decimal.Zero
	}
	vat := Round2(subtotal.Mul(vatRate).Div(hundred))
	return Summary{
		Subtotal: subtotal,
		VAT:      vat,
		Total:    Round2(subtotal.Add(vat)),
	}
}
