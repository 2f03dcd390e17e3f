package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/entity"
)

const displayTime = "2006-01-02 15:04"

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format(displayTime)
}

func writeSession(w io.Writer, s entity.Session) {
	status := "OPEN"
	if !s.IsOpen() {
		status = "CLOSED"
	}
	fmt.Fprintf(w, "Session: %s\n", s.SessionID)
	fmt.Fprintf(w, "  Status: %s\n", status)
	fmt.Fprintf(w, "  Mode: %s\n", s.Mode)
	fmt.Fprintf(w, "  Started: %s\n", formatTime(&s.StartedAt))
	fmt.Fprintf(w, "  Ended: %s\n", formatTime(s.EndedAt))
	if len(s.Goals) > 0 {
		fmt.Fprintf(w, "  Goals: %s\n", strings.Join(s.Goals, ", "))
	}
	if s.Summary != nil {
		fmt.Fprintf(w, "  Summary: %s\n", *s.Summary)
	}
	if len(s.OpenLoopsAtEnd) > 0 {
		fmt.Fprintf(w, "  Open Loops: %s\n", strings.Join(s.OpenLoopsAtEnd, ", "))
	}
}

func writeEvent(w io.Writer, e entity.Event) {
	fmt.Fprintf(w, "Event (%s): %s\n", e.EventType, e.Description)
	fmt.Fprintf(w, "  Occurred: %s\n", formatTime(&e.OccurredAt))
	fmt.Fprintf(w, "  Learned: %s\n", formatTime(&e.LearnedAt))
	if e.Significance != nil {
		fmt.Fprintf(w, "  Significance: %s\n", *e.Significance)
	}
}

func writeLearning(w io.Writer, l entity.Learning) {
	fmt.Fprintf(w, "Learning (%s, %.0f%% confidence):\n", l.Domain, l.Confidence*100)
	fmt.Fprintf(w, "  %s\n", l.Content)
	fmt.Fprintf(w, "  Learned: %s\n", formatTime(&l.LearnedAt))
	if l.Supersedes != "" {
		fmt.Fprintf(w, "  Supersedes: %s\n", l.Supersedes)
	}
}

func writeDecision(w io.Writer, d entity.Decision) {
	fmt.Fprintf(w, "Decision: %s\n", d.Description)
	fmt.Fprintf(w, "  Made: %s\n", formatTime(&d.MadeAt))
	fmt.Fprintf(w, "  Context: %s\n", d.Context)
	fmt.Fprintf(w, "  Rationale: %s\n", d.Rationale)
	if len(d.OptionsConsidered) > 0 {
		fmt.Fprintf(w, "  Options: %s\n", strings.Join(d.OptionsConsidered, ", "))
	}
	if d.Outcome != nil {
		fmt.Fprintf(w, "  Outcome: %s (assessed %s)\n", *d.Outcome, formatTime(d.OutcomeAssessedAt))
	}
}

// writeList writes each item followed by a blank line, or empty when there
// are none.
func writeList[T any](w io.Writer, items []T, empty string, write func(io.Writer, T)) {
	if len(items) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, item := range items {
		write(w, item)
		fmt.Fprintln(w)
	}
}

// nonNil keeps empty lists as [] in JSON output.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// parseTimeFlag parses an optional timestamp flag. Empty means the zero
// time, which the repository replaces with now.
func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := chrono.Parse(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

// parseBoundFlag parses a query bound at full precision.
func parseBoundFlag(name, value string) (time.Time, error) {
	t, err := chrono.ParseExact(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

// invalidInput reports a bad flag value as a command error.
func invalidInput(out *OutputFormatter, err error) error {
	return out.Fail(ExitCommandError, ErrCodeInvalid, "invalid input", err, nil)
}
