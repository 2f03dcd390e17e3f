// Package timeline answers point-in-time and range questions over
// learnings and events.
//
// LearningsBefore answers "what was known as of T": the cutoff is exclusive
// and results are most recent first. EventsInRange is the timeline view: both
// ends are inclusive and results run oldest first.
//
// Bounds are compared at full precision against the stored, microsecond
// timestamps; they are never rounded.
package timeline

import (
	"context"
	"sort"
	"time"

	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/repo"
)

// Engine runs temporal queries through a repository.
type Engine struct {
	repo *repo.Repository
}

// New creates an Engine.
func New(r *repo.Repository) *Engine {
	return &Engine{repo: r}
}

// LearningsBefore returns learnings with learned_at strictly before cutoff,
// most recent first. An empty domain matches every domain.
func (e *Engine) LearningsBefore(ctx context.Context, cutoff time.Time, domain entity.Domain) []entity.Learning {
	cutoff = cutoff.UTC()
	out := []entity.Learning{}
	for _, l := range e.repo.Learnings(ctx, domain) {
		if l.LearnedAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LearnedAt.Equal(out[j].LearnedAt) {
			return out[i].LearnedAt.After(out[j].LearnedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// EventsInRange returns events with start <= occurred_at <= end, oldest
// first. An inverted range is empty.
func (e *Engine) EventsInRange(ctx context.Context, start, end time.Time) []entity.Event {
	start, end = start.UTC(), end.UTC()
	out := []entity.Event{}
	for _, ev := range e.repo.Events(ctx, "") {
		if !ev.OccurredAt.Before(start) && !ev.OccurredAt.After(end) {
			out = append(out, ev)
		}
	}
	sortOldestFirst(out)
	return out
}

// EventsKnownAt returns the events that had been recorded by asOf
// (learned_at <= asOf), oldest occurrence first. It reconstructs the
// timeline as it appeared at that instant, which can differ from
// EventsInRange when events are recorded late.
func (e *Engine) EventsKnownAt(ctx context.Context, asOf time.Time) []entity.Event {
	asOf = asOf.UTC()
	out := []entity.Event{}
	for _, ev := range e.repo.Events(ctx, "") {
		if !ev.LearnedAt.After(asOf) {
			out = append(out, ev)
		}
	}
	sortOldestFirst(out)
	return out
}

func sortOldestFirst(events []entity.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].ID < events[j].ID
	})
}
