package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pricesync",
	Short: "Jewelry catalog price synchronization",
	Long: `pricesync keeps a jewelry store's catalog priced against live
gold and silver rates.

Usage:
  go run ./cmd/pricesync [command]

Examples:
  go run ./cmd/pricesync auto
  go run ./cmd/pricesync manual --gold-rate 7000
  go run ./cmd/pricesync diamond --configs "Lab Grown:15000"
  go run ./cmd/pricesync scheduler
  go run ./cmd/pricesync api`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
