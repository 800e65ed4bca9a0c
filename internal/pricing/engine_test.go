package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) Money {
	return decimal.RequireFromString(v)
}

func TestPriceLineWithCustomization(t *testing.T) {
	line := PriceLine(d("30.00"), []Money{d("5.00")}, []Money{d("2.50")}, 2)
	if !line.UnitPrice.Equal(d("37.50")) {
		t.Fatalf("expected unit price 37.50, got %s", line.UnitPrice)
	}
	if !line.LineTotal.Equal(d("75.00")) {
		t.Fatalf("expected line total 75.00, got %s", line.LineTotal)
	}
}

func TestPriceLineClampsNegativeUnitPrice(t *testing.T) {
	line := PriceLine(d("10.00"), nil, []Money{d("-15.00")}, 3)
	if !line.UnitPrice.IsZero() {
		t.Fatalf("expected unit price clamped to 0, got %s", line.UnitPrice)
	}
	if !line.LineTotal.IsZero() {
		t.Fatalf("expected zero line total, got %s", line.LineTotal)
	}
}

func TestPriceLineNegativeReplacementWithinBase(t *testing.T) {
	line := PriceLine(d("12.00"), nil, []Money{d("-2.00")}, 1)
	if !line.UnitPrice.Equal(d("10.00")) {
		t.Fatalf("expected 10.00, got %s", line.UnitPrice)
	}
}

func TestPriceLineFloorsQuantity(t *testing.T) {
	line := PriceLine(d("4.25"), nil, nil, 0)
	if !line.LineTotal.Equal(d("4.25")) {
		t.Fatalf("expected quantity floored to 1, got total %s", line.LineTotal)
	}
}

func TestComputeBasicCart(t *testing.T) {
	s := Compute([]Money{d("60.00")}, d("15"))
	if !s.Subtotal.Equal(d("60.00")) || !s.VAT.Equal(d("9.00")) || !s.Total.Equal(d("69.00")) {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestComputeRoundsVAT(t *testing.T) {
	// 0.35 * 15% = 0.0525 -> 0.05
	s := Compute([]Money{d("0.35")}, d("15"))
	if !s.VAT.Equal(d("0.05")) {
		t.Fatalf("expected vat 0.05, got %s", s.VAT)
	}
	if !s.Total.Equal(d("0.40")) {
		t.Fatalf("expected total 0.40, got %s", s.Total)
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, d("15"))
	if !s.Subtotal.IsZero() || !s.VAT.IsZero() || !s.Total.IsZero() {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestComputeTotalsAreConsistent(t *testing.T) {
	totals := []Money{d("12.99"), d("7.33"), d("0.01"), d("103.47")}
	for _, rate := range []string{"0", "5", "7.5", "15", "21"} {
		s := Compute(totals, d(rate))
		wantVAT := Round2(s.Subtotal.Mul(d(rate)).Div(d("100")))
		if !s.VAT.Equal(wantVAT) {
			t.Fatalf("rate %s: vat %s, want %s", rate, s.VAT, wantVAT)
		}
		if !s.Total.Equal(Round2(s.Subtotal.Add(s.VAT))) {
			t.Fatalf("rate %s: total %s inconsistent", rate, s.Total)
		}
	}
}
