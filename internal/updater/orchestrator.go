package updater

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jhango/pricesync/internal/catalog"
	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/internal/rates"
	"github.com/jhango/pricesync/pkg/logger"
)

// priceEpsilon bounds the rounding noise tolerated when deciding whether a
// stored price already matches the recalculated one.
const priceEpsilon = 0.005

// Catalog is the slice of the store client the orchestrator drives.
type Catalog interface {
	ListProducts(ctx context.Context, handles []string) ([]catalog.Product, error)
	GetThemeSettings(ctx context.Context) (catalog.ThemeSettings, error)
	UpdateThemeSettings(ctx context.Context, updates map[string]interface{}) error
	UpdateVariantPrice(ctx context.Context, variantID string, price, compareAt float64) error
	UpdateProductMetafield(ctx context.Context, productID, namespace, key, value, valueType string) error
}

// Orchestrator runs catalog-wide price recalculations. Each run snapshots
// its pricing inputs once, then prices every in-scope variant against that
// snapshot so a rate change mid-run cannot split the catalog.
type Orchestrator struct {
	catalog    Catalog
	rateSource rates.Source
	logger     *logger.Logger
}

// New creates an orchestrator over the given catalog and rate source.
func New(cat Catalog, src rates.Source, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:    cat,
		rateSource: src,
		logger:     log.WithField("component", "updater"),
	}
}

// Run executes one recalculation run and returns its report. A variant
// failure never aborts the run; only an unusable catalog, an unobtainable
// rate, or a cancelled context does.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*RunReport, error) {
	report := newRunReport(params.Mode)

	settings, err := o.catalog.GetThemeSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read theme settings: %w", err)
	}

	snapshot := rates.Snapshot{
		GSTPct:       catalog.GSTPercentage(settings),
		DiamondSlots: catalog.DiamondSlots(settings),
		FetchedAt:    time.Now(),
	}

	if params.Mode == ModeDiamond {
		if err := o.applyDiamondConfigs(ctx, params.DiamondConfigs, &snapshot); err != nil {
			return nil, err
		}
		// Diamond runs reprice gold products against the stored rate, not
		// a fresh market fetch.
		snapshot.GoldRate = catalog.GoldRate(settings)
	} else {
		goldRate, err := o.resolveRate(ctx, pricing.MaterialGold, params.GoldRate, params.Mode)
		if err != nil {
			return nil, err
		}
		silverRate, err := o.resolveRate(ctx, pricing.MaterialSilver, params.SilverRate, params.Mode)
		if err != nil {
			return nil, err
		}
		snapshot.GoldRate, snapshot.SilverRate = goldRate, silverRate
		if snapshot.GoldRate <= 0 && snapshot.SilverRate <= 0 {
			// No usable rate at all means no run; aborting here
			// guarantees nothing was written.
			return nil, fmt.Errorf("abort run: %w", rates.ErrRateUnavailable)
		}
	}
	report.Snapshot = snapshot

	products, err := o.catalog.ListProducts(ctx, params.Selection.Include)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	affected := affectedStoneTypes(params)

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, err
		}
		if !params.Selection.Match(product.Handle) {
			continue
		}
		if affected != nil && !catalog.HasAnyStoneType(product, affected) {
			continue
		}
		o.processProduct(ctx, product, snapshot, params.Overrides, report)
	}

	if params.Mode != ModeDiamond && params.Selection.IsFullCatalog() {
		o.writeThemeRates(ctx, snapshot)
	}

	report.FinishedAt = time.Now()
	o.logger.WithFields(map[string]interface{}{
		"run_id":  report.ID,
		"mode":    string(report.Mode),
		"updated": report.Updated,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Run finished")
	return report, nil
}

// resolveRate prefers an operator-supplied rate over the market source.
// Only auto runs fall back to fetching, and there a failed fetch is
// run-fatal: an auto run prices the whole catalog, so it must not touch
// half of it while the other metal's rate is unknown. A manual run
// without a rate for a metal leaves that metal at zero and its variants
// are skipped.
func (o *Orchestrator) resolveRate(ctx context.Context, kind pricing.MaterialKind, manual float64, mode Mode) (float64, error) {
	if manual > 0 {
		return manual, nil
	}
	if mode != ModeAuto {
		return 0, nil
	}
	if o.rateSource == nil {
		return 0, fmt.Errorf("abort run, no %s rate: %w", kind, rates.ErrRateUnavailable)
	}

	rate, _, err := o.rateSource.Fetch(ctx, kind)
	if err != nil {
		o.logger.WithError(err).WithField("metal", string(kind)).Error("Rate fetch failed, aborting run")
		return 0, fmt.Errorf("abort run, no %s rate: %w", kind, rates.ErrRateUnavailable)
	}
	return rate, nil
}

// applyDiamondConfigs rewrites the theme's diamond slot prices and mirrors
// the change into the run snapshot.
func (o *Orchestrator) applyDiamondConfigs(ctx context.Context, configs []DiamondConfig, snapshot *rates.Snapshot) error {
	if len(configs) == 0 {
		return fmt.Errorf("diamond run needs at least one stone configuration")
	}

	updates := map[string]interface{}{}
	for _, cfg := range configs {
		slot := slotIndex(snapshot.DiamondSlots, cfg.Name)
		if slot < 0 {
			if len(snapshot.DiamondSlots) >= catalog.MaxDiamondSlots {
				return fmt.Errorf("no free diamond slot for %q: theme holds %d", cfg.Name, catalog.MaxDiamondSlots)
			}
			slot = len(snapshot.DiamondSlots)
			snapshot.DiamondSlots = append(snapshot.DiamondSlots, pricing.DiamondSlot{Name: cfg.Name})
			updates[fmt.Sprintf("diamond_%d_name", slot+1)] = cfg.Name
		}
		snapshot.DiamondSlots[slot].PricePerCarat = cfg.PricePerCarat
		updates[fmt.Sprintf("diamond_%d_price_per_carat", slot+1)] = formatRate(cfg.PricePerCarat)
	}

	if err := o.catalog.UpdateThemeSettings(ctx, updates); err != nil {
		return fmt.Errorf("write diamond settings: %w", err)
	}
	return nil
}

func slotIndex(slots []pricing.DiamondSlot, name string) int {
	normalized := pricing.NormalizeLabel(name)
	for i, slot := range slots {
		if pricing.NormalizeLabel(slot.Name) == normalized {
			return i
		}
	}
	return -1
}

// affectedStoneTypes narrows a diamond run to products carrying one of the
// repriced stones. Nil means no narrowing.
func affectedStoneTypes(params Params) map[string]bool {
	if params.Mode != ModeDiamond {
		return nil
	}
	types := make(map[string]bool, len(params.DiamondConfigs))
	for _, cfg := range params.DiamondConfigs {
		types[pricing.NormalizeLabel(cfg.Name)] = true
	}
	return types
}

// processProduct prices every variant of one product. Failures stay inside
// the product; the run continues.
func (o *Orchestrator) processProduct(ctx context.Context, product catalog.Product, snapshot rates.Snapshot, overrides pricing.Overrides, report *RunReport) {
	material := catalog.MaterialOf(product)
	if material == "" {
		for _, v := range product.Variants {
			report.add(failure(product, v, "unknown material"))
		}
		return
	}

	rate := snapshot.GoldRate
	if material == pricing.MaterialSilver {
		rate = snapshot.SilverRate
	}
	if rate <= 0 {
		for _, v := range product.Variants {
			report.add(skip(product, v, fmt.Sprintf("no %s rate available", material)))
		}
		return
	}

	updated := false
	for _, variant := range product.Variants {
		outcome := o.processVariant(ctx, product, variant, material, snapshot, overrides)
		report.add(outcome)
		if outcome.Status == StatusUpdated {
			updated = true
		}
	}

	if updated {
		o.writeProvenance(ctx, product, material, rate)
	}
}

func (o *Orchestrator) processVariant(ctx context.Context, product catalog.Product, variant catalog.Variant, material pricing.MaterialKind, snapshot rates.Snapshot, overrides pricing.Overrides) Outcome {
	attrs := catalog.VariantAttributes(product, variant)

	breakdown, err := o.price(attrs, material, snapshot, overrides)
	if err != nil {
		return failure(product, variant, err.Error())
	}

	if priceMatches(variant, breakdown) {
		return skip(product, variant, "price unchanged")
	}

	if err := o.catalog.UpdateVariantPrice(ctx, variant.ID, breakdown.Total, breakdown.CompareAt); err != nil {
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"handle":  product.Handle,
			"variant": variant.ID,
		}).Error("Variant price write failed")
		return failure(product, variant, err.Error())
	}

	return Outcome{
		ProductID: product.ID,
		Handle:    product.Handle,
		VariantID: variant.ID,
		Title:     variant.Title,
		OldPrice:  variant.Price,
		NewPrice:  breakdown.Total,
		CompareAt: breakdown.CompareAt,
		Status:    StatusUpdated,
	}
}

func (o *Orchestrator) price(attrs pricing.Attributes, material pricing.MaterialKind, snapshot rates.Snapshot, overrides pricing.Overrides) (pricing.Breakdown, error) {
	if material == pricing.MaterialSilver {
		calc := pricing.SilverCalculator{SilverRate: snapshot.SilverRate}
		return calc.Calculate(attrs)
	}

	var stonePrice float64
	if attrs.StoneCarats > 0 {
		var err error
		stonePrice, err = pricing.ResolvePricePerCarat(attrs.StoneTypes, snapshot.DiamondSlots, overrides, attrs.StonePricePerCarat)
		if err != nil {
			return pricing.Breakdown{}, err
		}
	}

	calc := pricing.GoldCalculator{GoldRate: snapshot.GoldRate, GSTPct: snapshot.GSTPct}
	return calc.Calculate(attrs, stonePrice)
}

// priceMatches reports whether the stored price and compare-at already
// equal the recalculated ones. Matching both makes reruns no-ops.
func priceMatches(variant catalog.Variant, breakdown pricing.Breakdown) bool {
	stored, err := strconv.ParseFloat(variant.Price, 64)
	if err != nil {
		return false
	}
	if math.Abs(stored-breakdown.Total) >= priceEpsilon {
		return false
	}

	storedCompare, err := strconv.ParseFloat(variant.CompareAtPrice, 64)
	if err != nil {
		return false
	}
	return math.Abs(storedCompare-breakdown.CompareAt) < priceEpsilon
}

// writeProvenance tags an updated product with the rate used to price it.
// A provenance failure is logged, never escalated.
func (o *Orchestrator) writeProvenance(ctx context.Context, product catalog.Product, material pricing.MaterialKind, rate float64) {
	key := catalog.ProvenanceGoldKey
	if material == pricing.MaterialSilver {
		key = catalog.ProvenanceSilverKey
	}

	err := o.catalog.UpdateProductMetafield(ctx, product.ID, catalog.ProvenanceNamespace, key, formatRate(rate), "number_decimal")
	if err != nil {
		o.logger.WithError(err).WithField("handle", product.Handle).Warn("Provenance metafield write failed")
	}
}

// writeThemeRates publishes the run's display rates to the storefront
// theme. Only full-catalog runs do this; a partial run's rates would lie
// about products it never touched. Failure is logged, never escalated.
func (o *Orchestrator) writeThemeRates(ctx context.Context, snapshot rates.Snapshot) {
	updates := map[string]interface{}{}
	if snapshot.GoldRate > 0 {
		updates["gold_rate"] = formatRate(snapshot.GoldRate)
	}
	if snapshot.SilverRate > 0 {
		updates["silver_rate"] = formatRate(snapshot.SilverRate)
	}
	if len(updates) == 0 {
		return
	}

	if err := o.catalog.UpdateThemeSettings(ctx, updates); err != nil {
		o.logger.WithError(err).Warn("Theme rate write failed")
	}
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func failure(p catalog.Product, v catalog.Variant, reason string) Outcome {
	return Outcome{
		ProductID: p.ID, Handle: p.Handle, VariantID: v.ID, Title: v.Title,
		OldPrice: v.Price, Status: StatusFailed, Reason: reason,
	}
}

func skip(p catalog.Product, v catalog.Variant, reason string) Outcome {
	return Outcome{
		ProductID: p.ID, Handle: p.Handle, VariantID: v.ID, Title: v.Title,
		OldPrice: v.Price, Status: StatusSkipped, Reason: reason,
	}
}
