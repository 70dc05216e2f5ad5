package main

import (
	"os"

	"github.com/jhango/pricesync/cmd/pricesync/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
