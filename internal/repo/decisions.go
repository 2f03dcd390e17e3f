package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/entity"
)

// DecisionParams are the inputs to CreateDecision. A zero MadeAt means now.
type DecisionParams struct {
	Description string
	Context     string
	Rationale   string
	Options     []string
	MadeAt      time.Time
}

// CreateDecision inserts a new decision without an outcome.
func (r *Repository) CreateDecision(ctx context.Context, p DecisionParams) (entity.Decision, error) {
	d := entity.NewDecision(p.Description, r.orNow(p.MadeAt), p.Context, p.Rationale, p.Options...)
	id, err := r.store.Insert(ctx, d.Document())
	if err != nil {
		return entity.Decision{}, fmt.Errorf("create decision: %w", err)
	}
	d.ID = id
	return d, nil
}

// GetDecision fetches a decision by store id.
func (r *Repository) GetDecision(ctx context.Context, id string) (entity.Decision, bool) {
	return fetch(ctx, r, id, entity.DecisionFromDocument)
}

// ListDecisions returns decisions, most recently made first.
func (r *Repository) ListDecisions(ctx context.Context, limit int) []entity.Decision {
	decisions := scan(ctx, r, entity.ClassDecision, nil, entity.DecisionFromDocument)
	return newestFirst(decisions, decisionMadeAt, decisionID, limit)
}

// UpdateDecisionOutcome records how a decision turned out. A zero assessedAt
// means now. Returns ErrNotFound when the decision cannot be read.
func (r *Repository) UpdateDecisionOutcome(ctx context.Context, id, outcome string, assessedAt time.Time) (entity.Decision, error) {
	d, ok := r.GetDecision(ctx, id)
	if !ok {
		return entity.Decision{}, fmt.Errorf("update decision outcome %s: %w", id, ErrNotFound)
	}
	d.RecordOutcome(outcome, r.orNow(assessedAt))
	if err := r.store.Replace(ctx, d.Document()); err != nil {
		return entity.Decision{}, fmt.Errorf("update decision outcome %s: %w", id, err)
	}
	r.logger.Debug("decision outcome recorded", "id", d.ID, "assessed_at", chrono.Format(*d.OutcomeAssessedAt))
	return d, nil
}

// DecisionsForSession returns the decisions produced by the session with
// store id id, most recent first. Dangling links are skipped.
func (r *Repository) DecisionsForSession(ctx context.Context, id string) []entity.Decision {
	out := []entity.Decision{}
	for _, did := range r.RelatedTo(ctx, id, entity.SessionProducedDecision, "session", "decision") {
		if d, ok := r.GetDecision(ctx, did); ok {
			out = append(out, d)
		}
	}
	return newestFirst(out, decisionMadeAt, decisionID, 0)
}

func decisionMadeAt(d entity.Decision) time.Time { return d.MadeAt }
func decisionID(d entity.Decision) string { return d.ID }
