package commands

import (
	"fmt"
	"time"

	"github.com/jhango/pricesync/internal/updater"
)

// printReport writes a human-readable run summary to stdout.
func printReport(report *updater.RunReport) {
	fmt.Println()
	fmt.Printf("Run %s (%s)\n", report.ID, report.Mode)
	fmt.Printf("  duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Snapshot.GoldRate > 0 {
		fmt.Printf("  gold rate: %.2f/g\n", report.Snapshot.GoldRate)
	}
	if report.Snapshot.SilverRate > 0 {
		fmt.Printf("  silver rate: %.2f/g\n", report.Snapshot.SilverRate)
	}
	fmt.Printf("  updated: %d  skipped: %d  failed: %d\n", report.Updated, report.Skipped, report.Failed)

	if report.Failed > 0 {
		fmt.Println("\nFailures:")
		for _, out := range report.Outcomes {
			if out.Status != updater.StatusFailed {
				continue
			}
			fmt.Printf("  %s / %s: %s\n", out.Handle, out.Title, out.Reason)
		}
	}

	if report.Updated > 0 {
		fmt.Println("\nUpdated:")
		for _, out := range report.Outcomes {
			if out.Status != updater.StatusUpdated {
				continue
			}
			fmt.Printf("  %s / %s: %s -> %.2f (compare at %.2f)\n",
				out.Handle, out.Title, out.OldPrice, out.NewPrice, out.CompareAt)
		}
	}
}
