package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/sidekick/internal/history"
)

// NewMemoryCommand returns the memory subcommand.
func NewMemoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Manage stored conversations and checkpoints",
		Commands: []*cli.Command{
			{
				Name:   "export",
				Usage:  "Export every conversation with its history as YAML",
				Action: runMemoryExport,
			},
			{
				Name:  "wipe",
				Usage: "Delete all conversations and checkpoints for the user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: runMemoryWipe,
			},
			{
				Name:   "cleanup",
				Usage:  "Remove checkpoints that lost their conversation",
				Action: runMemoryCleanup,
			},
			{
				Name:      "checkpoints",
				Usage:     "List a conversation's saved checkpoints, newest first",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Value:   10,
						Usage:   "Show at most this many checkpoints (0 for all)",
					},
				},
				Action: runMemoryCheckpoints,
			},
		},
	}
}

type conversationExport struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	CreatedAt   string          `yaml:"created_at"`
	LastUpdated string          `yaml:"last_updated"`
	Messages    []history.Entry `yaml:"messages"`
}

func runMemoryExport(_ context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListConversations(cmd.String("user"))
	if err != nil {
		return err
	}

	out := make([]conversationExport, 0, len(list))
	for _, conv := range list {
		entries, err := priorHistory(store, conv)
		if err != nil {
			return fmt.Errorf("history for %s: %w", conv.ID, err)
		}
		out = append(out, conversationExport{
			ID:          conv.ID,
			Title:       conv.Title,
			CreatedAt:   conv.CreatedAt.Format("2006-01-02 15:04:05"),
			LastUpdated: conv.LastUpdated.Format("2006-01-02 15:04:05"),
			Messages:    entries,
		})
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(map[string]any{"conversations": out})
}

func runMemoryWipe(_ context.Context, cmd *cli.Command) error {
	username := cmd.String("user")
	if !cmd.Bool("yes") {
		fmt.Printf("This deletes every conversation for %q. Re-run with --yes to confirm.\n", username)
		return nil
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteAllUserMemory(username); err != nil {
		return err
	}
	fmt.Println("Memory wiped.")
	return nil
}

func runMemoryCheckpoints(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	conv, err := store.GetConversation(id, cmd.String("user"))
	if err != nil {
		return err
	}
	snaps, err := store.ListCheckpoints(conv.ThreadID, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No checkpoints.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tCREATED\tITERATIONS\tMESSAGES")
	for _, snap := range snaps {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n",
			snap.Seq,
			snap.CreatedAt.Format("2006-01-02 15:04:05"),
			snap.State.IterationCount,
			len(snap.State.Messages))
	}
	return w.Flush()
}

func runMemoryCleanup(_ context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.CleanupOrphanedCheckpoints()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d orphaned checkpoints.\n", n)
	return nil
}
