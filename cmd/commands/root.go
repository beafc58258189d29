package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sidekick/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "sidekick",
		Usage: "A personal AI assistant that works tasks to completion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Username that owns the conversations",
				Value:   "default",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewGatewayCommand(),
			NewAskCommand(),
			NewConversationsCommand(),
			NewMemoryCommand(),
			NewStatusCommand(),
		},
	}
}
