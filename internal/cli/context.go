package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/session"
)

// contentPreview is how much of a learning the context summary shows.
const contentPreview = 80

func newContextCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Show what a new session should start from",
		Long: `Show the last session, open loops left by recent sessions, and the
most recent learnings and decisions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				c := a.sessions.ContextForNewSession(ctx)
				c.RecentSessions = nonNil(c.RecentSessions)
				c.RecentLearnings = nonNil(c.RecentLearnings)
				c.RecentDecisions = nonNil(c.RecentDecisions)
				if c.OpenLoops == nil {
					c.OpenLoops = []string{}
				}
				return out.Render(c, func(w io.Writer) { writeContext(w, c) })
			})
		},
	}
}

func writeContext(w io.Writer, c session.Context) {
	fmt.Fprintln(w, "=== Context for New Session ===")
	fmt.Fprintln(w)
	if c.LastSession != nil {
		fmt.Fprintln(w, "Last Session:")
		writeSession(w, *c.LastSession)
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "No previous sessions.")
		fmt.Fprintln(w)
	}
	if len(c.OpenLoops) > 0 {
		fmt.Fprintln(w, "Open Loops from Recent Sessions:")
		for _, loop := range c.OpenLoops {
			fmt.Fprintf(w, "  - %s\n", loop)
		}
		fmt.Fprintln(w)
	}
	if len(c.RecentLearnings) > 0 {
		fmt.Fprintf(w, "Recent Learnings (%d):\n", len(c.RecentLearnings))
		for _, l := range c.RecentLearnings {
			fmt.Fprintf(w, "  - %s\n", truncate(l.Content, contentPreview))
		}
		fmt.Fprintln(w)
	}
	if len(c.RecentDecisions) > 0 {
		fmt.Fprintf(w, "Recent Decisions (%d):\n", len(c.RecentDecisions))
		for _, d := range c.RecentDecisions {
			fmt.Fprintf(w, "  - %s\n", d.Description)
		}
		fmt.Fprintln(w)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Stats is the JSON payload of the stats command.
type Stats struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

func newStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count stored entities by class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				stats := Stats{Counts: a.repo.Counts(ctx)}
				classes := make([]string, 0, len(stats.Counts))
				for class, n := range stats.Counts {
					classes = append(classes, class)
					stats.Total += n
				}
				sort.Strings(classes)
				return out.Render(stats, func(w io.Writer) {
					fmt.Fprintln(w, "=== Ops Memory Statistics ===")
					fmt.Fprintln(w)
					for _, class := range classes {
						fmt.Fprintf(w, "  %s: %d\n", class, stats.Counts[class])
					}
					fmt.Fprintf(w, "\n  Total: %d\n", stats.Total)
				})
			})
		},
	}
}
