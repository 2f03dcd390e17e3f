package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/repo"
)

func newDecisionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Record decisions and their outcomes",
	}
	cmd.AddCommand(newDecisionCreateCommand(rootOpts))
	cmd.AddCommand(newDecisionListCommand(rootOpts))
	cmd.AddCommand(newDecisionOutcomeCommand(rootOpts))
	return cmd
}

func newDecisionCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		description, decisionContext, rationale, at string
		options                                     []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				madeAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				d, err := a.repo.CreateDecision(ctx, repo.DecisionParams{
					Description: description,
					Context:     decisionContext,
					Rationale:   rationale,
					Options:     options,
					MadeAt:      madeAt,
				})
				if err != nil {
					return writeFailed(out, "failed to create decision", err)
				}
				return out.Render(d, func(w io.Writer) {
					fmt.Fprintf(w, "Created decision with ID: %s\n", d.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what was decided (required)")
	cmd.Flags().StringVar(&decisionContext, "context", "", "situation the decision was made in (required)")
	cmd.Flags().StringVar(&rationale, "rationale", "", "why this choice (required)")
	cmd.Flags().StringSliceVar(&options, "options", nil, "options considered")
	cmd.Flags().StringVar(&at, "at", "", "when it was made (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("context")
	_ = cmd.MarkFlagRequired("rationale")
	return cmd
}

func newDecisionListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List decisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				decisions := nonNil(a.repo.ListDecisions(ctx, limit))
				return out.Render(decisions, func(w io.Writer) {
					writeList(w, decisions, "No decisions found.", writeDecision)
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results (0 for all)")
	return cmd
}

func newDecisionOutcomeCommand(rootOpts *RootOptions) *cobra.Command {
	var id, outcome, at string
	cmd := &cobra.Command{
		Use:   "outcome",
		Short: "Record how a decision turned out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				assessedAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				d, err := a.repo.UpdateDecisionOutcome(ctx, id, outcome, assessedAt)
				if err != nil {
					return writeFailed(out, "failed to record outcome", err)
				}
				return out.Render(d, func(w io.Writer) { writeDecision(w, d) })
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "decision id (required)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "what happened (required)")
	cmd.Flags().StringVar(&at, "at", "", "when it was assessed (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}
