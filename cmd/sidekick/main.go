package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dohr-michael/sidekick/cmd/commands"
	"github.com/dohr-michael/sidekick/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sidekick:", err)
		os.Exit(1)
	}
}

func run() error {
	// Provider keys may live in a .env next to the config instead of the
	// shell environment.
	if err := config.LoadDotenv(config.DotenvPath()); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return commands.NewRootCommand().Run(ctx, os.Args)
}
