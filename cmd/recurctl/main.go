// Package main is the entry point for the recurctl CLI.
package main

import (
	"os"

	"github.com/cyp0633/taskrecur/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
