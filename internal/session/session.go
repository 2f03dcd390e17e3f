// Package session composes the repository into the two operations a calling
// application runs around a working session: BeginSession and EndSession.
// ContextForNewSession gathers what the next session should start from.
//
// Neither operation is atomic. Each step commits on its own, and a fault
// partway through leaves earlier steps in place; the returned
// *PartialFailureError says exactly what was committed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/repo"
)

// DefaultMode is the session mode used when none is given.
const DefaultMode = "ops"

// ErrSessionNotFound is returned by EndSession when no session has the
// given session_id.
var ErrSessionNotFound = errors.New("session not found")

// PartialFailureError reports a composite operation that failed after some
// of its writes had committed. Nothing is rolled back.
type PartialFailureError struct {
	SessionID string
	Step      string
	Session   entity.Session

	// Ids of entities created and linked to the session before the fault.
	Learnings []string
	Decisions []string

	// Ids of entities created but whose link to the session failed.
	Unlinked []string

	Err error
}

func (e *PartialFailureError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "session %s: partial failure at %s: %v", e.SessionID, e.Step, e.Err)
	fmt.Fprintf(&sb, " (committed: %d learnings, %d decisions", len(e.Learnings), len(e.Decisions))
	if len(e.Unlinked) > 0 {
		fmt.Fprintf(&sb, ", %d unlinked", len(e.Unlinked))
	}
	sb.WriteString(")")
	return sb.String()
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// Orchestrator runs session-level operations.
type Orchestrator struct {
	repo   *repo.Repository
	logger *slog.Logger
}

// New creates an Orchestrator. A nil logger uses slog.Default().
func New(r *repo.Repository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{repo: r, logger: logger}
}

// BeginParams are the inputs to BeginSession.
type BeginParams struct {
	SessionID string
	Mode      string
	Goals     []string
	StartedAt time.Time
}

// BeginSession creates a session and, when an earlier session exists, links
// the new one to it with SessionFollowed. The gap is counted in whole days,
// rounded down, and is negative when the new session starts first.
func (o *Orchestrator) BeginSession(ctx context.Context, p BeginParams) (entity.Session, error) {
	previous, hasPrevious := o.repo.LastSession(ctx)

	mode := p.Mode
	if mode == "" {
		mode = DefaultMode
	}
	s, err := o.repo.CreateSession(ctx, repo.SessionParams{
		SessionID: p.SessionID,
		Mode:      mode,
		Goals:     p.Goals,
		StartedAt: p.StartedAt,
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("begin session: %w", err)
	}

	if !hasPrevious || previous.ID == "" || s.ID == "" {
		o.logger.Info("session started", "session_id", s.SessionID)
		return s, nil
	}

	gap := GapDays(s.StartedAt, previous.StartedAt)
	if _, err := o.repo.Link(ctx, entity.SessionFollowed, s.ID, previous.ID, repo.WithGapDays(gap)); err != nil {
		return s, &PartialFailureError{
			SessionID: s.SessionID,
			Step:      "link previous session " + previous.SessionID,
			Session:   s,
			Err:       err,
		}
	}
	o.logger.Info("session started", "session_id", s.SessionID, "follows", previous.SessionID, "gap_days", gap)
	return s, nil
}

// GapDays is the number of whole days from earlier to later, rounded toward
// negative infinity.
func GapDays(later, earlier time.Time) int {
	const day = 24 * time.Hour
	d := later.Sub(earlier)
	days := d / day
	if d%day < 0 {
		days--
	}
	return int(days)
}

// DecisionInput describes a decision recorded at session end.
type DecisionInput struct {
	Description string   `yaml:"description" json:"description"`
	Context     string   `yaml:"context" json:"context"`
	Rationale   string   `yaml:"rationale" json:"rationale"`
	Options     []string `yaml:"options" json:"options,omitempty"`
}

// EndParams are the inputs to EndSession. A zero EndedAt means now; an empty
// Summary or OpenLoops leaves the stored value unchanged.
type EndParams struct {
	SessionID string
	Summary   string
	Learnings []string
	Decisions []DecisionInput
	OpenLoops []string
	EndedAt   time.Time
}

// EndSession closes the session, then creates each learning (procedural,
// default confidence) and decision and links it to the session, in order.
//
// A missing session fails with ErrSessionNotFound before anything is
// written. A fault after the close returns the closed session together with
// a *PartialFailureError; writes made before the fault stay committed.
func (o *Orchestrator) EndSession(ctx context.Context, p EndParams) (entity.Session, error) {
	closeParams := repo.CloseParams{EndedAt: p.EndedAt}
	if p.Summary != "" {
		closeParams.Summary = &p.Summary
	}
	if len(p.OpenLoops) > 0 {
		closeParams.OpenLoops = p.OpenLoops
	}

	s, err := o.repo.CloseSession(ctx, p.SessionID, closeParams)
	if errors.Is(err, repo.ErrNotFound) {
		return entity.Session{}, fmt.Errorf("end session %s: %w", p.SessionID, ErrSessionNotFound)
	}
	if err != nil {
		return entity.Session{}, fmt.Errorf("end session %s: %w", p.SessionID, err)
	}

	partial := &PartialFailureError{SessionID: s.SessionID, Session: s}
	fail := func(step string, err error) (entity.Session, error) {
		partial.Step = step
		partial.Err = err
		o.logger.Error("session end incomplete",
			"session_id", s.SessionID,
			"step", step,
			"learnings", len(partial.Learnings),
			"decisions", len(partial.Decisions),
			"error", err)
		return s, partial
	}

	for i, content := range p.Learnings {
		l, err := o.repo.CreateLearning(ctx, repo.LearningParams{
			Content:    content,
			Domain:     entity.DomainProcedural,
			Confidence: repo.DefaultConfidence,
		})
		if err != nil {
			return fail(fmt.Sprintf("create learning %d", i+1), err)
		}
		if _, err := o.repo.Link(ctx, entity.SessionProducedLearning, s.ID, l.ID); err != nil {
			partial.Unlinked = append(partial.Unlinked, l.ID)
			return fail(fmt.Sprintf("link learning %d", i+1), err)
		}
		partial.Learnings = append(partial.Learnings, l.ID)
	}

	for i, in := range p.Decisions {
		d, err := o.repo.CreateDecision(ctx, repo.DecisionParams{
			Description: in.Description,
			Context:     in.Context,
			Rationale:   in.Rationale,
			Options:     in.Options,
		})
		if err != nil {
			return fail(fmt.Sprintf("create decision %d", i+1), err)
		}
		if _, err := o.repo.Link(ctx, entity.SessionProducedDecision, s.ID, d.ID); err != nil {
			partial.Unlinked = append(partial.Unlinked, d.ID)
			return fail(fmt.Sprintf("link decision %d", i+1), err)
		}
		partial.Decisions = append(partial.Decisions, d.ID)
	}

	o.logger.Info("session ended",
		"session_id", s.SessionID,
		"learnings", len(partial.Learnings),
		"decisions", len(partial.Decisions))
	return s, nil
}

// RecentLimit bounds each list in a Context.
const RecentLimit = 5

// Context is the starting point for a new session.
type Context struct {
	LastSession     *entity.Session   `json:"last_session,omitempty"`
	RecentSessions  []entity.Session  `json:"recent_sessions"`
	OpenLoops       entity.Set        `json:"open_loops"`
	RecentLearnings []entity.Learning `json:"recent_learnings"`
	RecentDecisions []entity.Decision `json:"recent_decisions"`
}

// ContextForNewSession returns the last session, the most recent sessions,
// learnings and decisions, and the union of open loops left by the recent
// sessions.
func (o *Orchestrator) ContextForNewSession(ctx context.Context) Context {
	recent := o.repo.ListSessions(ctx, RecentLimit)

	var c Context
	if len(recent) > 0 {
		last := recent[0]
		c.LastSession = &last
	}
	c.RecentSessions = recent
	for _, s := range recent {
		c.OpenLoops = c.OpenLoops.Union(s.OpenLoopsAtEnd)
	}
	c.RecentLearnings = o.repo.ListLearnings(ctx, "", RecentLimit)
	c.RecentDecisions = o.repo.ListDecisions(ctx, RecentLimit)
	return c
}
