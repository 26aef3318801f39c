package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/nux"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		oldLeads   int64
		newLeads   int64
		automation bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Estimate conversions and revenue for a lead base",
		Example: `  nuxctl analyze --old 150 --new 80
  nuxctl analyze --old 150 --new 80 --automation`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if oldLeads < 0 || newLeads < 0 {
				return fmt.Errorf("lead counts must not be negative")
			}
			a := nux.StandaloneAnalysis(oldLeads, newLeads, automation)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"analysis":          a,
				"revenue_formatted": nux.FormatNumber(a.RevenueEstimate) + " €",
			})
		},
	}
	cmd.Flags().Int64Var(&oldLeads, "old", 0, "Number of old, unworked contacts")
	cmd.Flags().Int64Var(&newLeads, "new", 0, "New leads per month")
	cmd.Flags().BoolVar(&automation, "automation", false, "Whether follow-ups are automated")
	return cmd
}

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Show the detected coaching mode and extracted profile for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			profile := nux.Extract(message, nil, domain.UserProfile{})
			mode, scores := nux.DetectWithScores(message, nil, profile)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"mode":    mode,
				"scores":  scores,
				"profile": profile,
			})
		},
	}
	return cmd
}
