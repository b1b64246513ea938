package main

import (
	"os"

	"github.com/wonny/optimal-selector/cmd/selector/commands"
)

// main is the entry point for the selector CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/selector [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
