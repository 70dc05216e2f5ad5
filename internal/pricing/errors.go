package pricing

import "errors"

var (
	// ErrInvalidAttribute marks negative weights, carats or percentages.
	// These indicate corrupted metafield data and are rejected, not clamped.
	ErrInvalidAttribute = errors.New("invalid product attribute")

	// ErrUnknownMaterialKind marks a product that is neither gold nor silver.
	ErrUnknownMaterialKind = errors.New("unknown material kind")

	// ErrNoStonePrice marks a stone-bearing product whose stone types match
	// no override, no theme slot, and carry no fallback price.
	ErrNoStonePrice = errors.New("no stone price found")
)
