package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/session"
)

func newLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Session start and end shortcuts",
	}
	cmd.AddCommand(newLogStartCommand(rootOpts))
	cmd.AddCommand(newLogEndCommand(rootOpts))
	return cmd
}

// LogStartResult is the JSON payload of log start.
type LogStartResult struct {
	Session   entity.Session `json:"session"`
	OpenLoops entity.Set     `json:"open_loops"`
}

func newLogStartCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id, mode, at string
		goals        []string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session and link it to the previous one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				startedAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				s, err := a.sessions.BeginSession(ctx, session.BeginParams{
					SessionID: id,
					Mode:      mode,
					Goals:     goals,
					StartedAt: startedAt,
				})
				if err != nil {
					return writeFailed(out, "failed to start session", err)
				}

				loops := a.sessions.ContextForNewSession(ctx).OpenLoops
				result := LogStartResult{Session: s, OpenLoops: loops}
				if result.OpenLoops == nil {
					result.OpenLoops = entity.Set{}
				}
				return out.Render(result, func(w io.Writer) {
					fmt.Fprintf(w, "Session started: %s\n", s.SessionID)
					fmt.Fprintf(w, "Document ID: %s\n", s.ID)
					if len(loops) > 0 {
						fmt.Fprintln(w, "\nOpen loops to address:")
						for _, loop := range loops {
							fmt.Fprintf(w, "  - %s\n", loop)
						}
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (required)")
	cmd.Flags().StringVar(&mode, "mode", session.DefaultMode, "operating mode")
	cmd.Flags().StringSliceVar(&goals, "goals", nil, "session goals")
	cmd.Flags().StringVar(&at, "at", "", "start time (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// LogEndResult is the JSON payload of log end.
type LogEndResult struct {
	Session   entity.Session `json:"session"`
	Learnings int            `json:"learnings"`
	Decisions int            `json:"decisions"`
}

func newLogEndCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id, summary, at, decisionsFile string
		learnings, openLoops           []string
	)
	cmd := &cobra.Command{
		Use:   "end",
		Short: "Close a session and record what it produced",
		Long: `Close a session, then record each learning and decision and link it to
the session.

Decisions are read from a YAML file holding a list of entries:

  - description: Use SQLite for local runs
    context: Single user, no server
    rationale: Zero setup
    options: [sqlite, postgres]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				endedAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				var decisions []session.DecisionInput
				if decisionsFile != "" {
					if decisions, err = readDecisions(decisionsFile); err != nil {
						return invalidInput(out, err)
					}
				}

				s, err := a.sessions.EndSession(ctx, session.EndParams{
					SessionID: id,
					Summary:   summary,
					Learnings: learnings,
					Decisions: decisions,
					OpenLoops: openLoops,
					EndedAt:   endedAt,
				})
				if err != nil {
					return writeFailed(out, "failed to end session", err)
				}

				result := LogEndResult{Session: s, Learnings: len(learnings), Decisions: len(decisions)}
				return out.Render(result, func(w io.Writer) {
					fmt.Fprintf(w, "Session ended: %s\n", s.SessionID)
					if len(learnings) > 0 {
						fmt.Fprintf(w, "Learnings logged: %d\n", len(learnings))
					}
					if len(decisions) > 0 {
						fmt.Fprintf(w, "Decisions logged: %d\n", len(decisions))
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (required)")
	cmd.Flags().StringVar(&summary, "summary", "", "session summary (required)")
	cmd.Flags().StringArrayVar(&learnings, "learning", nil, "something learned (repeatable)")
	cmd.Flags().StringSliceVar(&openLoops, "open-loops", nil, "work left open")
	cmd.Flags().StringVar(&decisionsFile, "decisions", "", "YAML file of decisions made")
	cmd.Flags().StringVar(&at, "at", "", "end time (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

// readDecisions decodes a YAML list of decisions. Unknown keys are rejected.
func readDecisions(path string) ([]session.DecisionInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var decisions []session.DecisionInput
	if err := dec.Decode(&decisions); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse decisions %s: %w", path, err)
	}
	for i, d := range decisions {
		if d.Description == "" {
			return nil, fmt.Errorf("parse decisions %s: entry %d has no description", path, i+1)
		}
	}
	return decisions, nil
}
