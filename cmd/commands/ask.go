package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sidekick/internal/engine"
	"github.com/dohr-michael/sidekick/internal/history"
	"github.com/dohr-michael/sidekick/internal/memory"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Run a task and print the response",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conversation",
				Aliases: []string{"C"},
				Usage:   "Conversation ID to continue (empty = new conversation)",
			},
			&cli.StringFlag{
				Name:  "criteria",
				Usage: "Success criteria the answer must meet",
			},
			&cli.BoolFlag{
				Name:  "clarify",
				Usage: "Ask clarifying questions before running",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Run timeout in seconds",
				Value: 120,
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if message == "" {
		return fmt.Errorf("usage: sidekick ask <message>")
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	username := cmd.String("user")
	conv, err := resolveConversation(a.store, username, cmd.String("conversation"))
	if err != nil {
		return err
	}

	factory := a.runnerFactory()
	runner, err := factory(ctx, username, conv.ID)
	if err != nil {
		return err
	}

	llmMessage := message
	if cmd.Bool("clarify") {
		llmMessage = clarifyInteractive(ctx, runner, message, cmd.String("criteria"))
	}

	prior, err := priorHistory(a.store, conv)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int("timeout"))*time.Second)
	defer cancel()

	entries, err := runner.Run(runCtx, llmMessage, cmd.String("criteria"), prior, message)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if len(entries) > 0 {
		fmt.Println(entries[len(entries)-1].Content)
	}
	fmt.Fprintf(os.Stderr, "conversation: %s\n", conv.ID)
	return nil
}

func resolveConversation(store *memory.Store, username, conversationID string) (*memory.Conversation, error) {
	if conversationID != "" {
		return store.GetConversation(conversationID, username)
	}
	return store.CreateConversation(username, "")
}

func priorHistory(store *memory.Store, conv *memory.Conversation) ([]history.Entry, error) {
	state, found, err := store.LoadLatest(conv.ThreadID)
	if err != nil || !found {
		return nil, err
	}
	return history.Reconcile(state.Messages), nil
}

// clarifyInteractive prints the clarifying questions, reads answers from
// stdin, and returns the enhanced message. Blank answers skip the question.
func clarifyInteractive(ctx context.Context, runner interface {
	ClarifyingQuestions(ctx context.Context, message, criteria string) []string
}, message, criteria string) string {
	questions := runner.ClarifyingQuestions(ctx, message, criteria)

	reader := bufio.NewReader(os.Stdin)
	answers := make([]string, len(questions))
	for i, q := range questions {
		fmt.Printf("%d. %s\n> ", i+1, q)
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		answers[i] = strings.TrimSpace(line)
	}
	return engine.ComposeClarifiedMessage(message, questions, answers)
}
