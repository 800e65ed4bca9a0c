package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/customization"
)

// BuildCustomization turns the option ids picked in the customization editor
// into a customization set. Unknown ids are skipped. When several replacements
// of the same group are picked the last one wins.
func BuildCustomization(options []Option, selected []string) customization.Set {
	byID := make(map[string]Option, len(options))
	for _, opt := range options {
		byID[opt.ID] = opt
	}
	var set customization.Set
	for _, id := range selected {
		opt, ok := byID[strings.TrimSpace(id)]
		if !ok {
			continue
		}
		switch opt.Kind {
		case customization.KindRemoval:
			set.Removals = append(set.Removals, customization.Removal{Name: opt.Label})
		case customization.KindAddition:
			price := opt.PriceDelta
			if price.IsNegative() {
				price = decimal.Zero
			}
			set.Additions = append(set.Additions, customization.Addition{Name: opt.Label, Price: price})
		case customization.KindReplacement:
			set.Replacements = append(set.Replacements, customization.Replacement{
				Group:      opt.Group,
				Name:       opt.Label,
				PriceDelta: opt.PriceDelta,
			})
		}
	}
	return set.Normalize()
}
