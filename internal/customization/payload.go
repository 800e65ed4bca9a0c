package customization

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// Persisted orders carry customization in a loosely typed shape: entries may
// be bare strings or objects, prices may be numbers or strings, and older
// records use different key names. ParsePayload is the only place that knows
// about those variants.

var (
	removalKeys     = []string{"removals", "removed", "removedIngredients", "removed_ingredients"}
	additionKeys    = []string{"additions", "added", "extras", "addedIngredients", "added_ingredients"}
	replacementKeys = []string{"replacements", "replaced", "substitutions"}
)

type rawEntry struct {
	Name        string          `mapstructure:"name"`
	Label       string          `mapstructure:"label"`
	To          string          `mapstructure:"to"`
	Group       string          `mapstructure:"group"`
	From        string          `mapstructure:"from"`
	Price       decimal.Decimal `mapstructure:"price"`
	PriceDelta  decimal.Decimal `mapstructure:"priceDelta"`
	PriceDelta2 decimal.Decimal `mapstructure:"price_delta"`
	Delta       decimal.Decimal `mapstructure:"delta"`
}

func (e rawEntry) name() string {
	for _, v := range []string{e.Name, e.Label, e.To} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (e rawEntry) group() string {
	if g := strings.TrimSpace(e.Group); g != "" {
		return g
	}
	return strings.TrimSpace(e.From)
}

func (e rawEntry) price() decimal.Decimal {
	for _, v := range []decimal.Decimal{e.PriceDelta, e.PriceDelta2, e.Delta, e.Price} {
		if !v.IsZero() {
			return v
		}
	}
	return decimal.Zero
}

// ParsePayload converts a persisted customization payload into a Set. It never
// fails: unknown shapes degrade to a label with a zero price and unreadable
// payloads yield an empty set.
func ParsePayload(raw []byte) Set {
	fields := decodeObject(raw)
	if fields == nil {
		return Set{}
	}
	var s Set
	for _, e := range entries(fields, removalKeys) {
		s.Removals = append(s.Removals, Removal{Name: e.name()})
	}
	for _, e := range entries(fields, additionKeys) {
		s.Additions = append(s.Additions, Addition{Name: e.name(), Price: e.price()})
	}
	for _, e := range entries(fields, replacementKeys) {
		s.Replacements = append(s.Replacements, Replacement{Group: e.group(), Name: e.name(), PriceDelta: e.price()})
	}
	return s.Normalize()
}

// Encode renders s in the canonical persisted shape.
func Encode(s Set) (json.RawMessage, error) {
	return json.Marshal(s.Normalize())
}

func decodeObject(raw []byte) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	// Some writers stored the payload as a JSON encoded string.
	if s, ok := v.(string); ok {
		return decodeObject([]byte(s))
	}
	m, _ := v.(map[string]any)
	return m
}

func entries(fields map[string]any, keys []string) []rawEntry {
	var out []rawEntry
	for _, key := range keys {
		list, ok := fields[key].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if e, ok := decodeEntry(item); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func decodeEntry(item any) (rawEntry, bool) {
	switch v := item.(type) {
	case string:
		return rawEntry{Name: v}, strings.TrimSpace(v) != ""
	case map[string]any:
		var e rawEntry
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       decimalHook,
			WeaklyTypedInput: true,
			Result:           &e,
		})
		if err != nil {
			return rawEntry{}, false
		}
		if err := dec.Decode(v); err != nil {
			// Keep whatever label was readable.
			name, _ := v["name"].(string)
			return rawEntry{Name: name}, strings.TrimSpace(name) != ""
		}
		return e, e.name() != ""
	}
	return rawEntry{}, false
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case json.Number:
		return parseDecimal(v.String()), nil
	case string:
		return parseDecimal(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	}
	return decimal.Zero, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
