package main

import (
	"os"

	"github.com/metaforge-dev/metaforge/internal/cli/commands"
)

var (
	// Version information - will be set at build time
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if version != "dev" {
		commands.Version = version
	}
	if gitCommit != "unknown" {
		commands.GitCommit = gitCommit
	}
	if buildDate != "unknown" {
		commands.BuildDate = buildDate
	}

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
