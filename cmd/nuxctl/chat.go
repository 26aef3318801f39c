package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/convlog"
	"github.com/ashureev/nux-coach/internal/store"
)

func newChatCommand() *cobra.Command {
	var (
		dbPath    string
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the scripted coach in the terminal",
		Long: `Starts an interactive chat with an in-process coach. Replies are scripted,
no model is called. With --db the conversation is stored in a SQLite file and
can be resumed with --session.

Commands: /context prints the inferred profile, /reset starts over, /exit quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := conversation.Options{Logger: slog.New(slog.DiscardHandler)}
			if dbPath != "" {
				repo, err := store.NewSQLite(dbPath)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer func() { _ = repo.Close() }()
				opts.Store = repo
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			return runChat(cmd, conversation.New(opts), sessionID)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to persist the conversation in")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to resume")
	return cmd
}

func runChat(cmd *cobra.Command, engine *conversation.Engine, sessionID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintf(out, "NUX (Session %s) - /exit zum Beenden\n", sessionID)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/context":
			if err := printJSON(out, engine.Snapshot(ctx, sessionID)); err != nil {
				return err
			}
			continue
		case "/reset":
			engine.Reset(ctx, sessionID)
			fmt.Fprintln(out, "Gespräch zurückgesetzt.")
			continue
		}

		result, err := engine.HandleTurn(ctx, conversation.Turn{
			SessionID: sessionID,
			UserID:    "cli",
			Text:      line,
			Channel:   convlog.ChannelHTTP,
		})
		if err != nil {
			return fmt.Errorf("turn failed: %w", err)
		}
		fmt.Fprintf(out, "\nNUX [%s/%s]:\n%s\n\n", result.Mode.Type, result.Reply.State, result.Message.Content)
	}
}
