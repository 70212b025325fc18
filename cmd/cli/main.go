// Package main is the entry point for the epistola CLI.
// The CLI is the developer terminal tool for interacting with the epistola API.
package main

import (
	"os"

	"epistola/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
