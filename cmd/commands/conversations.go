package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sidekick/internal/memory"
)

// NewConversationsCommand returns the conversations subcommand.
func NewConversationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "conversations",
		Aliases: []string{"conv"},
		Usage:   "Manage conversations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List conversations",
				Action: runConversationsList,
			},
			{
				Name:  "new",
				Usage: "Create a conversation",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Initial title"},
				},
				Action: runConversationsNew,
			},
			{
				Name:      "history",
				Usage:     "Print a conversation's history",
				ArgsUsage: "<id>",
				Action:    runConversationsHistory,
			},
			{
				Name:      "clear",
				Usage:     "Clear a conversation's history, keeping the conversation",
				ArgsUsage: "<id>",
				Action:    runConversationsClear,
			},
			{
				Name:      "delete",
				Usage:     "Delete a conversation",
				ArgsUsage: "<id>",
				Action:    runConversationsDelete,
			},
		},
		DefaultCommand: "list",
	}
}

func openStore(cmd *cli.Command) (*memory.Store, error) {
	cfg := loadConfig(cmd)
	return memory.Open(cfg.Storage.DBPath)
}

func runConversationsList(_ context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListConversations(cmd.String("user"))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No conversations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tLAST UPDATED")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			c.ID, c.Title, c.MessageCount, c.LastUpdated.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runConversationsNew(_ context.Context, cmd *cli.Command) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	conv, err := store.CreateConversation(cmd.String("user"), cmd.String("title"))
	if err != nil {
		return err
	}
	fmt.Println(conv.ID)
	return nil
}

func runConversationsHistory(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: sidekick conversations history <id>")
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

	entries, err := priorHistory(store, conv)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No messages.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("[%s] %s\n", e.Role, e.Content)
	}
	return nil
}

func runConversationsClear(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: sidekick conversations clear <id>")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearHistory(id, cmd.String("user")); err != nil {
		return err
	}
	fmt.Println("Cleared.")
	return nil
}

func runConversationsDelete(_ context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: sidekick conversations delete <id>")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteConversation(id, cmd.String("user")); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}
