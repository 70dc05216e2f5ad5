package catalog

// Metafield keys consumed from the store. Product-level values act as
// defaults; variant-level values override them.
const (
	keyMetalWeight     = "custom.metal_weight"
	keyStoneCarats     = "custom.stone_carats"
	keyStoneTypes      = "custom.stone_types"
	keyStonePrice      = "custom.stone_prices_per_carat"
	keyMakingCharge    = "custom.making_charge_percentage"
	keyDiscountMaking  = "custom.discount_making_charge"
	keyHallmarking     = "jhango.hallmarking"
	keyCertification   = "jhango.certification"
)

// Provenance metafields written back on each updated product.
const (
	ProvenanceNamespace = "jhango"
	ProvenanceGoldKey   = "gold_rate"
	ProvenanceSilverKey = "silver_rate"
)

// Metafield is a namespaced key/value attribute on a product or variant.
type Metafield struct {
	Namespace string
	Key       string
	Value     string
	Type      string
}

// Variant is one sellable variant of a product.
type Variant struct {
	ID             string
	Title          string
	SKU            string
	Price          string // decimal string as stored by Shopify
	CompareAtPrice string
	Metafields     []Metafield
}

// Product is a catalog product with its metafields and variants.
type Product struct {
	ID          string
	Handle      string
	Title       string
	ProductType string
	Metafields  []Metafield
	Variants    []Variant
}
