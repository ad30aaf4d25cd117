// Package main provides the entry point for the qmd-bridge CLI.
package main

import (
	"os"

	"github.com/s950329/qmd-bridge/cmd/qmd-bridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
