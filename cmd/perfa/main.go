package main

import (
	"os"

	"github.com/wonny/perfa/cmd/perfa/commands"
)

// main is the entry point for the perfa CLI
// ⭐ unified CLI entry point: go run ./cmd/perfa [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
