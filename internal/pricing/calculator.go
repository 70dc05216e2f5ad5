package pricing

import (
	"fmt"
	"math"
	"strings"
)

// MaterialKind selects the formula branch for a product.
type MaterialKind string

const (
	MaterialGold   MaterialKind = "gold"
	MaterialSilver MaterialKind = "silver"
)

// purityFactors maps karat labels to their 24K-equivalent conversion factor.
type purityTable map[string]float64

var purityFactors = purityTable{
	"24KT": 1.000, "24K": 1.000,
	"22KT": 0.916, "22K": 0.916,
	"18KT": 0.750, "18K": 0.750,
	"14KT": 0.585, "14K": 0.585,
	"10KT": 0.417, "10K": 0.417,
	"9KT": 0.375, "9K": 0.375,
}

// PurityFactor resolves a variant's purity label ("14KT", "22K / Ruby", ...)
// to a conversion factor. Unrecognized labels price as 24K.
func PurityFactor(label string) float64 {
	upper := strings.ToUpper(strings.TrimSpace(label))
	if f, ok := purityFactors[upper]; ok {
		return f
	}

	// Variant titles often carry the karat as one of several option values.
	for token, f := range purityFactors {
		if strings.Contains(upper, token) {
			return f
		}
	}
	return 1.0
}

// Attributes is the immutable per-variant snapshot the calculators price.
// Missing numeric metafields arrive as zero; negative values are rejected.
type Attributes struct {
	Material            MaterialKind
	Purity              string // variant option label, e.g. "14KT"
	MetalWeight         float64
	StoneCarats         float64
	StoneTypes          []string
	StonePricePerCarat  float64 // product-level fallback
	MakingChargePct     float64
	DiscountMakingPct   float64
	HallmarkingCharge   float64
	CertificationCharge float64
}

// Validate rejects attribute values that indicate upstream data corruption.
func (a Attributes) Validate() error {
	if a.Material != MaterialGold && a.Material != MaterialSilver {
		return fmt.Errorf("%w: %q", ErrUnknownMaterialKind, a.Material)
	}
	if a.MetalWeight < 0 {
		return fmt.Errorf("%w: metal weight %.3f", ErrInvalidAttribute, a.MetalWeight)
	}
	if a.StoneCarats < 0 {
		return fmt.Errorf("%w: stone carats %.3f", ErrInvalidAttribute, a.StoneCarats)
	}
	if a.MakingChargePct < 0 || a.MakingChargePct > 100 {
		return fmt.Errorf("%w: making charge %.2f%%", ErrInvalidAttribute, a.MakingChargePct)
	}
	if a.DiscountMakingPct < 0 || a.DiscountMakingPct > 100 {
		return fmt.Errorf("%w: discount on making %.2f%%", ErrInvalidAttribute, a.DiscountMakingPct)
	}
	if a.HallmarkingCharge < 0 {
		return fmt.Errorf("%w: hallmarking charge %.2f", ErrInvalidAttribute, a.HallmarkingCharge)
	}
	if a.CertificationCharge < 0 {
		return fmt.Errorf("%w: certification charge %.2f", ErrInvalidAttribute, a.CertificationCharge)
	}
	return nil
}

// Breakdown is the full price decomposition for one variant.
// Total and CompareAt are rounded to 2 decimals; intermediate terms are not,
// so rounding error never compounds across terms.
type Breakdown struct {
	PurityFactor float64 `json:"purity_factor"`
	MetalPrice   float64 `json:"metal_price"`
	StonePrice   float64 `json:"stone_price"`
	MakingCharge float64 `json:"making_charge"`
	Discount     float64 `json:"discount"`
	Subtotal     float64 `json:"subtotal"`
	GST          float64 `json:"gst"`
	Total        float64 `json:"total"`
	CompareAt    float64 `json:"compare_at"`
}

// displayDiscount makes the selling price appear as 20% off CompareAt.
const displayDiscount = 0.20

// silver products use a flat per-gram multiplier and a fixed lab diamond
// rate instead of the fetched silver rate. The fetched rate is only written
// back as the displayed silver_rate.
const (
	silverWeightMultiplier = 1000
	labDiamondRatePerCarat = 40000
)

// GoldCalculator prices gold variants against the current 24K rate per gram.
type GoldCalculator struct {
	GoldRate float64 // currency per gram, 24K
	GSTPct   float64
}

// Calculate produces the price breakdown for a gold variant.
// Pure function: no I/O, deterministic for identical inputs.
func (c GoldCalculator) Calculate(attrs Attributes, stonePricePerCarat float64) (Breakdown, error) {
	if err := attrs.Validate(); err != nil {
		return Breakdown{}, err
	}

	factor := PurityFactor(attrs.Purity)
	metal := attrs.MetalWeight * factor * c.GoldRate
	stone := attrs.StoneCarats * stonePricePerCarat
	making := metal * attrs.MakingChargePct / 100
	discount := making * attrs.DiscountMakingPct / 100

	subtotal := metal + stone + making - discount + attrs.HallmarkingCharge + attrs.CertificationCharge
	if subtotal < 0 {
		subtotal = 0
	}

	gst := subtotal * c.GSTPct / 100
	total := RoundCurrency(subtotal + gst)

	return Breakdown{
		PurityFactor: factor,
		MetalPrice:   metal,
		StonePrice:   stone,
		MakingCharge: making,
		Discount:     discount,
		Subtotal:     subtotal,
		GST:          gst,
		Total:        total,
		CompareAt:    RoundCurrency(total / (1 - displayDiscount)),
	}, nil
}

// SilverCalculator prices silver variants with the flat per-gram formula.
type SilverCalculator struct {
	SilverRate float64 // displayed rate; not part of the formula
}

// Calculate produces the price breakdown for a silver variant.
func (c SilverCalculator) Calculate(attrs Attributes) (Breakdown, error) {
	if err := attrs.Validate(); err != nil {
		return Breakdown{}, err
	}

	metal := attrs.MetalWeight * silverWeightMultiplier
	stone := attrs.StoneCarats * labDiamondRatePerCarat
	total := RoundCurrency(metal + stone)

	return Breakdown{
		PurityFactor: 1.0,
		MetalPrice:   metal,
		StonePrice:   stone,
		Subtotal:     metal + stone,
		Total:        total,
		CompareAt:    RoundCurrency(total / (1 - displayDiscount)),
	}, nil
}

// RoundCurrency rounds to the smallest currency unit using round-half-up.
func RoundCurrency(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
