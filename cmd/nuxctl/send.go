package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/identity"
)

func newSendCommand() *cobra.Command {
	var (
		serverURL string
		sessionID string
		raw       bool
	)
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one chat message to a running NUX server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := sendChat(&http.Client{Timeout: 60 * time.Second}, serverURL, sessionID, args[0])
			if err != nil {
				return err
			}
			if raw {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n\n%s\n", result.SessionID, result.Mode.Type, result.Message.Content)
			return nil
		},
	}
	cmd.Flags().StringVarP(&serverURL, "server", "s", defaultServer(), "NUX server URL")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to continue")
	cmd.Flags().BoolVar(&raw, "json", false, "Print the full turn result as JSON")
	return cmd
}

func defaultServer() string {
	if server := os.Getenv("NUX_SERVER"); server != "" {
		return server
	}
	return "http://localhost:8080"
}

func sendChat(client *http.Client, serverURL, sessionID, message string) (*conversation.TurnResult, error) {
	body, err := json.Marshal(map[string]string{"message": message, "session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if sessionID != "" {
		req.Header.Set(identity.SessionHeaderName, sessionID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result conversation.TurnResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
