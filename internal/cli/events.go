package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/repo"
)

func newEventCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Record and query events",
	}
	cmd.AddCommand(newEventCreateCommand(rootOpts))
	cmd.AddCommand(newEventListCommand(rootOpts))
	cmd.AddCommand(newEventRangeCommand(rootOpts))
	cmd.AddCommand(newEventKnownCommand(rootOpts))
	return cmd
}

func newEventCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var description, eventType, occurredAt, learnedAt, significance string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an event",
		Long: `Record an event with both of its times: when it happened in the world
(--occurred-at) and when it became known (--learned-at).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				typ, err := entity.ParseEventType(eventType)
				if err != nil {
					return invalidInput(out, err)
				}
				occurred, err := parseTimeFlag("occurred-at", occurredAt)
				if err != nil {
					return invalidInput(out, err)
				}
				learned, err := parseTimeFlag("learned-at", learnedAt)
				if err != nil {
					return invalidInput(out, err)
				}
				e, err := a.repo.CreateEvent(ctx, repo.EventParams{
					Description:  description,
					EventType:    typ,
					OccurredAt:   occurred,
					LearnedAt:    learned,
					Significance: significance,
				})
				if err != nil {
					return writeFailed(out, "failed to create event", err)
				}
				return out.Render(e, func(w io.Writer) {
					fmt.Fprintf(w, "Created event with ID: %s\n", e.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what happened (required)")
	cmd.Flags().StringVar(&eventType, "type", "", "event type: decision, failure, success, discovery, calibration, external (required)")
	cmd.Flags().StringVar(&occurredAt, "occurred-at", "", "when it happened (RFC 3339, default now)")
	cmd.Flags().StringVar(&learnedAt, "learned-at", "", "when it became known (RFC 3339, default now)")
	cmd.Flags().StringVar(&significance, "significance", "", "why it matters")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newEventListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		eventType string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, most recently occurred first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				var typ entity.EventType
				if eventType != "" {
					var err error
					if typ, err = entity.ParseEventType(eventType); err != nil {
						return invalidInput(out, err)
					}
				}
				events := nonNil(a.repo.ListEvents(ctx, typ, limit))
				return out.Render(events, func(w io.Writer) {
					writeList(w, events, "No events found.", writeEvent)
				})
			})
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results (0 for all)")
	return cmd
}

func newEventRangeCommand(rootOpts *RootOptions) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "range",
		Short: "List events that occurred within a time range, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				from, err := parseBoundFlag("start", start)
				if err != nil {
					return invalidInput(out, err)
				}
				to, err := parseBoundFlag("end", end)
				if err != nil {
					return invalidInput(out, err)
				}
				events := nonNil(a.timeline.EventsInRange(ctx, from, to))
				return out.Render(events, func(w io.Writer) {
					writeList(w, events, "No events in range.", writeEvent)
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "range start, inclusive (required)")
	cmd.Flags().StringVar(&end, "end", "", "range end, inclusive (required)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newEventKnownCommand(rootOpts *RootOptions) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "known",
		Short: "List events that were known at a point in time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				at, err := parseBoundFlag("as-of", asOf)
				if err != nil {
					return invalidInput(out, err)
				}
				events := nonNil(a.timeline.EventsKnownAt(ctx, at))
				return out.Render(events, func(w io.Writer) {
					writeList(w, events, "No events known at that time.", writeEvent)
				})
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "point in time (required)")
	_ = cmd.MarkFlagRequired("as-of")
	return cmd
}
