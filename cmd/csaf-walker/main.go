// Package main is the entry point for the csaf-walker CLI.
package main

import (
	"os"

	"github.com/advisorystack/csaf-walker/cmd/csaf-walker/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
