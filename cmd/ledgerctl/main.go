// Package main is the entry point for ledgerctl.
package main

import (
	"os"

	"pharmaledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
