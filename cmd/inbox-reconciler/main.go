// Package main provides the CLI entry point for the inbox-reconciler.
package main

import (
	"log/slog"
	"os"

	"github.com/afikmenashe/notification-inbox/internal/cli"
	"github.com/afikmenashe/notification-inbox/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("Failed to load environment file", "error", err)
		os.Exit(1)
	}
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
