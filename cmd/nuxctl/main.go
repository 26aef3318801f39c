// nuxctl talks to the NUX coach from the command line: offline through an
// in-process engine, or against a running server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nuxctl",
		Short: "NUX CLI - chat with the lead coach and inspect its heuristics",
		Long: `nuxctl runs the NUX lead coach locally or against a NUX server.
Structured output is JSON (pipe through jq for human-readable formatting).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newClassifyCommand())
	rootCmd.AddCommand(newSendCommand())
	return rootCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
