package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/internal/updater"
)

var diamondConfigs string

var diamondCmd = &cobra.Command{
	Use:   "diamond",
	Short: "Reprice diamond slots and the products carrying them",
	Long: `Writes new per-carat prices into the theme's diamond slots, then
reprices only the gold products whose stone types match the repriced
slots. Metal rates are not refetched; the stored gold rate is reused.

The configuration defaults to the DIAMOND_CONFIGS environment variable.

Examples:
  go run ./cmd/pricesync diamond --configs "Lab Grown:15000,Natural:42000"
  go run ./cmd/pricesync diamond --configs '{"Polki": 8000}'`,
	RunE: runDiamond,
}

func init() {
	rootCmd.AddCommand(diamondCmd)

	diamondCmd.Flags().StringVar(&diamondConfigs, "configs", "", `stone prices ("label:price,..." or JSON)`)
}

func runDiamond(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	raw := diamondConfigs
	if raw == "" {
		raw = d.cfg.Update.DiamondConfigs
	}
	configs, err := parseDiamondConfigs(raw)
	if err != nil {
		return err
	}

	runReport, err := d.orchestrator.Run(ctx, updater.Params{
		Mode:           updater.ModeDiamond,
		DiamondConfigs: configs,
	})
	if err != nil {
		return fmt.Errorf("diamond run: %w", err)
	}

	d.finishRun(ctx, runReport)
	printReport(runReport)
	return nil
}

// parseDiamondConfigs accepts the same "label:price" pairs or JSON object
// as stone overrides. Flat pairs keep their input order so new theme
// slots land where the operator listed them; a JSON object carries no
// order, so its entries are sorted by name.
func parseDiamondConfigs(input string) ([]updater.DiamondConfig, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("diamond run needs --configs or DIAMOND_CONFIGS")
	}

	if strings.HasPrefix(input, "{") {
		overrides, err := pricing.ParseOverrides(input)
		if err != nil {
			return nil, fmt.Errorf("parse diamond configs: %w", err)
		}
		configs := make([]updater.DiamondConfig, 0, len(overrides))
		for name, price := range overrides {
			configs = append(configs, updater.DiamondConfig{Name: name, PricePerCarat: price})
		}
		sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
		return configs, nil
	}

	var configs []updater.DiamondConfig
	seen := map[string]int{}
	for _, pair := range strings.Split(input, ",") {
		label, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid diamond price in %q: %w", strings.TrimSpace(pair), err)
		}
		name := pricing.NormalizeLabel(label)
		if i, ok := seen[name]; ok {
			configs[i].PricePerCarat = price
			continue
		}
		seen[name] = len(configs)
		configs = append(configs, updater.DiamondConfig{Name: name, PricePerCarat: price})
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no diamond prices parsed from %q", input)
	}
	return configs, nil
}
