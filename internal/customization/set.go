package customization

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the effect a customization option has on a line.
type Kind string

const (
	KindRemoval     Kind = "removal"
	KindAddition    Kind = "addition"
	KindReplacement Kind = "replacement"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRemoval, KindAddition, KindReplacement:
		return true
	}
	return false
}

// Removal drops a default ingredient. It never affects price.
type Removal struct {
	Name string `json:"name"`
}

// Addition adds an extra ingredient for a non-negative price.
type Addition struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Replacement swaps the default of Group for Name. PriceDelta is signed.
type Replacement struct {
	Group      string          `json:"group"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// Set is the complete customization of one cart line.
type Set struct {
	Removals     []Removal     `json:"removals,omitempty"`
	Additions    []Addition    `json:"additions,omitempty"`
	Replacements []Replacement `json:"replacements,omitempty"`
}

// IsEmpty reports whether the set carries no customization at all.
func (s Set) IsEmpty() bool {
	return len(s.Removals) == 0 && len(s.Additions) == 0 && len(s.Replacements) == 0
}

// AdditionDeltas returns the price of every addition.
func (s Set) AdditionDeltas() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(s.Additions))
	for _, a := range s.Additions {
		out = append(out, a.Price)
	}
	return out
}

// ReplacementDeltas returns the signed delta of every replacement.
func (s Set) ReplacementDeltas() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(s.Replacements))
	for _, r := range s.Replacements {
		out = append(out, r.PriceDelta)
	}
	return out
}

// Normalize returns a copy of s with blank entries dropped, negative addition
// prices clamped to zero and at most one replacement per group. When a group
// appears more than once the last entry wins but keeps the first position.
func (s Set) Normalize() Set {
	out := Set{}
	for _, r := range s.Removals {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		out.Removals = append(out.Removals, Removal{Name: name})
	}
	for _, a := range s.Additions {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		price := a.Price
		if price.IsNegative() {
			price = decimal.Zero
		}
		out.Additions = append(out.Additions, Addition{Name: name, Price: price})
	}
	index := make(map[string]int, len(s.Replacements))
	for _, r := range s.Replacements {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		group := strings.TrimSpace(r.Group)
		if group == "" {
			group = name
		}
		rep := Replacement{Group: group, Name: name, PriceDelta: r.PriceDelta}
		if i, ok := index[group]; ok {
			out.Replacements[i] = rep
			continue
		}
		index[group] = len(out.Replacements)
		out.Replacements = append(out.Replacements, rep)
	}
	return out
}

// Clone returns a deep copy of s.
func (s Set) Clone() Set {
	out := Set{}
	if len(s.Removals) > 0 {
		out.Removals = append([]Removal(nil), s.Removals...)
	}
	if len(s.Additions) > 0 {
		out.Additions = append([]Addition(nil), s.Additions...)
	}
	if len(s.Replacements) > 0 {
		out.Replacements = append([]Replacement(nil), s.Replacements...)
	}
	return out
}
