// Package main is the entry point for the hdsl CLI tool.
package main

import (
	"os"

	"github.com/hashward/hdsl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
