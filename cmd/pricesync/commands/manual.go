package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/internal/updater"
)

var (
	manualGoldRate   float64
	manualSilverRate float64
	manualInclude    string
	manualExclude    string
	manualOverrides  string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Recalculate prices against operator-supplied rates",
	Long: `Reprices products against the given gold and silver rates instead
of fetching market rates. The selection can be narrowed by product handle;
an excluded handle always wins over an included one.

Flags default to the GOLD_RATE, SILVER_RATE, INCLUDE_HANDLES,
EXCLUDE_HANDLES and DIAMOND_CONFIGS environment variables.

Examples:
  go run ./cmd/pricesync manual --gold-rate 7000
  go run ./cmd/pricesync manual --gold-rate 7000 --include "ring-a,ring-b"
  go run ./cmd/pricesync manual --gold-rate 7000 --stone-overrides "Lab Grown:15000"`,
	RunE: runManual,
}

func init() {
	rootCmd.AddCommand(manualCmd)

	manualCmd.Flags().Float64Var(&manualGoldRate, "gold-rate", 0, "gold rate per gram, 24K")
	manualCmd.Flags().Float64Var(&manualSilverRate, "silver-rate", 0, "silver rate per gram")
	manualCmd.Flags().StringVar(&manualInclude, "include", "", "handles to include (comma separated)")
	manualCmd.Flags().StringVar(&manualExclude, "exclude", "", "handles to exclude (comma separated)")
	manualCmd.Flags().StringVar(&manualOverrides, "stone-overrides", "", `stone price overrides ("label:price,..." or JSON)`)
}

func runManual(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	goldRate := manualGoldRate
	if goldRate == 0 {
		goldRate = d.cfg.Update.GoldRate
	}
	silverRate := manualSilverRate
	if silverRate == 0 {
		silverRate = d.cfg.Update.SilverRate
	}
	if goldRate <= 0 && silverRate <= 0 {
		return fmt.Errorf("manual run needs --gold-rate or --silver-rate")
	}

	include := manualInclude
	if include == "" {
		include = d.cfg.Update.IncludeHandles
	}
	exclude := manualExclude
	if exclude == "" {
		exclude = d.cfg.Update.ExcludeHandles
	}

	overrides, err := pricing.ParseOverrides(manualOverrides)
	if err != nil {
		return fmt.Errorf("parse stone overrides: %w", err)
	}

	runReport, err := d.orchestrator.Run(ctx, updater.Params{
		Mode:       updater.ModeManual,
		GoldRate:   goldRate,
		SilverRate: silverRate,
		Overrides:  overrides,
		Selection: updater.Selection{
			Include: updater.ParseHandles(include),
			Exclude: updater.ParseHandles(exclude),
		},
	})
	if err != nil {
		return fmt.Errorf("manual run: %w", err)
	}

	d.finishRun(ctx, runReport)
	printReport(runReport)
	return nil
}
