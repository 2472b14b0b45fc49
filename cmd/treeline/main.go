// Package main provides the treeline CLI.
package main

import (
	"os"

	"github.com/treeline-labs/treeline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
