package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhango/pricesync/internal/updater"
)

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Recalculate the full catalog against live market rates",
	Long: `Fetches current gold and silver rates and reprices every product
in the catalog. Theme display rates are updated afterwards.

Example:
  go run ./cmd/pricesync auto`,
	RunE: runAuto,
}

func init() {
	rootCmd.AddCommand(autoCmd)
}

func runAuto(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := initDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	runReport, err := d.orchestrator.Run(ctx, updater.Params{Mode: updater.ModeAuto})
	if err != nil {
		return fmt.Errorf("auto run: %w", err)
	}

	d.finishRun(ctx, runReport)
	printReport(runReport)
	return nil
}
