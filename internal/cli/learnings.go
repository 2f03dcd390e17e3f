package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/repo"
)

func newLearningCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learning",
		Short: "Record and query learnings",
	}
	cmd.AddCommand(newLearningCreateCommand(rootOpts))
	cmd.AddCommand(newLearningListCommand(rootOpts))
	cmd.AddCommand(newLearningBeforeCommand(rootOpts))
	return cmd
}

func newLearningCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		content, domain, at, supersedes string
		confidence                      float64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a learning",
		Long: `Record a learning. With --supersedes the new learning replaces an
earlier one, which stays in the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				d, err := domainFlag(domain)
				if err != nil {
					return invalidInput(out, err)
				}
				if d == "" && supersedes == "" {
					return invalidInput(out, errors.New("--domain is required unless --supersedes is given"))
				}
				learnedAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				params := repo.LearningParams{
					Content:    content,
					Domain:     d,
					Confidence: confidence,
					LearnedAt:  learnedAt,
				}
				var l entity.Learning
				if supersedes != "" {
					l, err = a.repo.Supersede(ctx, supersedes, params)
				} else {
					l, err = a.repo.CreateLearning(ctx, params)
				}
				if err != nil {
					return writeFailed(out, "failed to create learning", err)
				}
				return out.Render(l, func(w io.Writer) {
					fmt.Fprintf(w, "Created learning with ID: %s\n", l.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "what was learned (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "domain: procedural, semantic, relational, meta (defaults to the superseded learning's)")
	cmd.Flags().Float64Var(&confidence, "confidence", repo.DefaultConfidence, "confidence in [0, 1]")
	cmd.Flags().StringVar(&supersedes, "supersedes", "", "id of the learning this replaces")
	cmd.Flags().StringVar(&at, "at", "", "when it was learned (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

// domainFlag parses an optional --domain filter.
func domainFlag(value string) (entity.Domain, error) {
	if value == "" {
		return "", nil
	}
	return entity.ParseDomain(value)
}

func newLearningListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		domain string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learnings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				d, err := domainFlag(domain)
				if err != nil {
					return invalidInput(out, err)
				}
				learnings := nonNil(a.repo.ListLearnings(ctx, d, limit))
				return out.Render(learnings, func(w io.Writer) {
					writeList(w, learnings, "No learnings found.", writeLearning)
				})
			})
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "filter by domain")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results (0 for all)")
	return cmd
}

func newLearningBeforeCommand(rootOpts *RootOptions) *cobra.Command {
	var cutoff, domain string
	cmd := &cobra.Command{
		Use:   "before",
		Short: "List learnings recorded before a point in time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				at, err := parseBoundFlag("cutoff", cutoff)
				if err != nil {
					return invalidInput(out, err)
				}
				d, err := domainFlag(domain)
				if err != nil {
					return invalidInput(out, err)
				}
				learnings := nonNil(a.timeline.LearningsBefore(ctx, at, d))
				return out.Render(learnings, func(w io.Writer) {
					writeList(w, learnings, "No learnings before that time.", writeLearning)
				})
			})
		},
	}
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "exclusive upper bound (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "filter by domain")
	_ = cmd.MarkFlagRequired("cutoff")
	return cmd
}
