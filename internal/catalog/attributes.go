package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jhango/pricesync/internal/pricing"
)

// goldPurityTokens mark a variant title as a gold product.
var goldPurityTokens = []string{
	"9KT", "10KT", "14KT", "18KT", "22KT", "24KT",
	"9K", "10K", "14K", "18K", "22K", "24K",
}

// silverTokens mark a variant title as a silver product.
var silverTokens = []string{"SILVER", "925", "STERLING"}

// MaterialOf derives the material kind from a product's variant titles.
// Returns the empty kind when no variant looks like gold or silver.
func MaterialOf(p Product) pricing.MaterialKind {
	for _, v := range p.Variants {
		title := strings.ToUpper(v.Title)
		for _, token := range goldPurityTokens {
			if strings.Contains(title, token) {
				return pricing.MaterialGold
			}
		}
	}

	for _, v := range p.Variants {
		title := strings.ToUpper(v.Title)
		for _, token := range silverTokens {
			if strings.Contains(title, token) {
				return pricing.MaterialSilver
			}
		}
	}
	return ""
}

// metafieldMap flattens metafields into a "namespace.key" lookup.
func metafieldMap(mfs []Metafield) map[string]string {
	m := make(map[string]string, len(mfs))
	for _, mf := range mfs {
		m[mf.Namespace+"."+mf.Key] = mf.Value
	}
	return m
}

// metafieldFloat reads a numeric metafield. List-typed values contribute
// their first element. Anything non-numeric falls back to the default;
// absence is zero by convention, never an error.
func metafieldFloat(m map[string]string, key string, fallback float64) float64 {
	raw, ok := m[key]
	if !ok || raw == "" {
		return fallback
	}

	if strings.HasPrefix(raw, "[") {
		var list []json.Number
		if err := json.Unmarshal([]byte(raw), &list); err != nil || len(list) == 0 {
			return fallback
		}
		raw = list[0].String()
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return value
}

// splitStoneTypes splits a comma-separated stone type metafield into
// ordered labels.
func splitStoneTypes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var labels []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}

// VariantAttributes builds the pricing snapshot for one variant. Product
// metafields provide defaults; variant metafields override them.
func VariantAttributes(p Product, v Variant) pricing.Attributes {
	pm := metafieldMap(p.Metafields)
	vm := metafieldMap(v.Metafields)

	stoneTypes := vm[keyStoneTypes]
	if stoneTypes == "" {
		stoneTypes = pm[keyStoneTypes]
	}

	return pricing.Attributes{
		Material:            MaterialOf(p),
		Purity:              v.Title,
		MetalWeight:         metafieldFloat(vm, keyMetalWeight, metafieldFloat(pm, keyMetalWeight, 0)),
		StoneCarats:         metafieldFloat(vm, keyStoneCarats, metafieldFloat(pm, keyStoneCarats, 0)),
		StoneTypes:          splitStoneTypes(stoneTypes),
		StonePricePerCarat:  metafieldFloat(vm, keyStonePrice, metafieldFloat(pm, keyStonePrice, 0)),
		MakingChargePct:     metafieldFloat(pm, keyMakingCharge, 0),
		DiscountMakingPct:   metafieldFloat(pm, keyDiscountMaking, 0),
		HallmarkingCharge:   metafieldFloat(pm, keyHallmarking, 0),
		CertificationCharge: metafieldFloat(pm, keyCertification, 0),
	}
}

// HasAnyStoneType reports whether the product (or any variant) declares a
// stone type in the given normalized set.
func HasAnyStoneType(p Product, types map[string]bool) bool {
	pm := metafieldMap(p.Metafields)
	for _, label := range splitStoneTypes(pm[keyStoneTypes]) {
		if types[pricing.NormalizeLabel(label)] {
			return true
		}
	}

	for _, v := range p.Variants {
		vm := metafieldMap(v.Metafields)
		for _, label := range splitStoneTypes(vm[keyStoneTypes]) {
			if types[pricing.NormalizeLabel(label)] {
				return true
			}
		}
	}
	return false
}
