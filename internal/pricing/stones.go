package pricing

import "strings"

// DiamondSlot is one named entry of the theme's diamond price table.
// The theme carries up to 20 slots; order is the theme's slot order.
type DiamondSlot struct {
	Name          string
	PricePerCarat float64
}

// Overrides maps normalized stone-type labels to a price per carat,
// supplied by a caller instead of the theme slots. Read-only after parse.
type Overrides map[string]float64

// NormalizeLabel canonicalizes a stone-type label for matching.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// ResolvePricePerCarat resolves a variant's stone-type labels to a price
// per carat. Sources are tried in order: the override map across all labels
// first, then the theme slots across all labels, then the product's own
// fallback price. First match wins within each pass.
func ResolvePricePerCarat(labels []string, slots []DiamondSlot, overrides Overrides, fallback float64) (float64, error) {
	for _, label := range labels {
		if price, ok := overrides[NormalizeLabel(label)]; ok {
			return price, nil
		}
	}

	for _, label := range labels {
		normalized := NormalizeLabel(label)
		if normalized == "" {
			continue
		}
		for _, slot := range slots {
			if NormalizeLabel(slot.Name) == normalized {
				return slot.PricePerCarat, nil
			}
		}
	}

	if fallback > 0 {
		return fallback, nil
	}
	return 0, ErrNoStonePrice
}
