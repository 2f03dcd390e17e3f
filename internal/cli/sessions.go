package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/repo"
)

func newSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, close and inspect sessions",
	}
	cmd.AddCommand(newSessionCreateCommand(rootOpts))
	cmd.AddCommand(newSessionCloseCommand(rootOpts))
	cmd.AddCommand(newSessionListCommand(rootOpts))
	cmd.AddCommand(newSessionGetCommand(rootOpts))
	return cmd
}

func newSessionCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id, mode, at string
		goals        []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an open session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				startedAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				s, err := a.repo.CreateSession(ctx, repo.SessionParams{
					SessionID: id,
					Mode:      mode,
					Goals:     goals,
					StartedAt: startedAt,
				})
				if err != nil {
					return writeFailed(out, "failed to create session", err)
				}
				return out.Render(s, func(w io.Writer) {
					fmt.Fprintf(w, "Created session: %s\n", s.SessionID)
					fmt.Fprintf(w, "Document ID: %s\n", s.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (required)")
	cmd.Flags().StringVar(&mode, "mode", "ops", "operating mode")
	cmd.Flags().StringSliceVar(&goals, "goals", nil, "session goals")
	cmd.Flags().StringVar(&at, "at", "", "start time (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newSessionCloseCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id, summary, at string
		openLoops       []string
	)
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a session with a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				endedAt, err := parseTimeFlag("at", at)
				if err != nil {
					return invalidInput(out, err)
				}
				s, err := a.repo.CloseSession(ctx, id, repo.CloseParams{
					EndedAt:   endedAt,
					Summary:   &summary,
					OpenLoops: openLoops,
				})
				if err != nil {
					return writeFailed(out, "failed to close session "+id, err)
				}
				return out.Render(s, func(w io.Writer) {
					fmt.Fprintf(w, "Closed session: %s\n", s.SessionID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (required)")
	cmd.Flags().StringVar(&summary, "summary", "", "session summary (required)")
	cmd.Flags().StringSliceVar(&openLoops, "open-loops", nil, "work left open")
	cmd.Flags().StringVar(&at, "at", "", "end time (RFC 3339, default now)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func newSessionListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				sessions := nonNil(a.repo.ListSessions(ctx, limit))
				return out.Render(sessions, func(w io.Writer) {
					writeList(w, sessions, "No sessions found.", writeSession)
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results (0 for all)")
	return cmd
}

func newSessionGetCommand(rootOpts *RootOptions) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				s, ok := a.repo.GetSessionBySessionID(ctx, id)
				if !ok {
					return out.Fail(ExitFailure, ErrCodeNotFound, "session not found: "+id, nil, nil)
				}
				return out.Render(s, func(w io.Writer) { writeSession(w, s) })
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

