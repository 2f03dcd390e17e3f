package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/ident"
)

// DefaultConfidence is used by callers that have no confidence of their own.
const DefaultConfidence = 0.8

// LearningParams are the inputs to CreateLearning. A zero LearnedAt means now.
// Confidence is clamped into [0, 1].
type LearningParams struct {
	Content    string
	Domain     entity.Domain
	Confidence float64
	LearnedAt  time.Time
	Supersedes string
}

// CreateLearning inserts a new learning.
func (r *Repository) CreateLearning(ctx context.Context, p LearningParams) (entity.Learning, error) {
	if !p.Domain.Valid() {
		return entity.Learning{}, fmt.Errorf("create learning: invalid domain %q", p.Domain)
	}
	l := entity.NewLearning(p.Content, r.orNow(p.LearnedAt), p.Confidence, p.Domain)
	l.Supersedes = ident.Normalize(p.Supersedes)
	id, err := r.store.Insert(ctx, l.Document())
	if err != nil {
		return entity.Learning{}, fmt.Errorf("create learning: %w", err)
	}
	l.ID = id
	return l, nil
}

// Supersede records a revision of an existing learning. The old learning is
// left in place. Domain defaults to the old learning's when empty.
func (r *Repository) Supersede(ctx context.Context, oldID string, p LearningParams) (entity.Learning, error) {
	old, ok := r.GetLearning(ctx, oldID)
	if !ok {
		return entity.Learning{}, fmt.Errorf("supersede learning %s: %w", oldID, ErrNotFound)
	}
	if p.Domain == "" {
		p.Domain = old.Domain
	}
	p.Supersedes = old.ID
	return r.CreateLearning(ctx, p)
}

// GetLearning fetches a learning by store id.
func (r *Repository) GetLearning(ctx context.Context, id string) (entity.Learning, bool) {
	return fetch(ctx, r, id, entity.LearningFromDocument)
}

// ListLearnings returns learnings, most recently learned first. An empty
// domain matches every domain.
func (r *Repository) ListLearnings(ctx context.Context, domain entity.Domain, limit int) []entity.Learning {
	return newestFirst(r.Learnings(ctx, domain), learningLearnedAt, learningID, limit)
}

// Learnings returns every learning in the domain in store order.
func (r *Repository) Learnings(ctx context.Context, domain entity.Domain) []entity.Learning {
	var filter docstore.Filter
	if domain != "" {
		filter = docstore.Filter{"domain": string(domain)}
	}
	return scan(ctx, r, entity.ClassLearning, filter, entity.LearningFromDocument)
}

// LearningsForSession returns the learnings produced by the session with
// store id id, most recent first. Dangling links are skipped.
func (r *Repository) LearningsForSession(ctx context.Context, id string) []entity.Learning {
	out := []entity.Learning{}
	for _, lid := range r.RelatedTo(ctx, id, entity.SessionProducedLearning, "session", "learning") {
		if l, ok := r.GetLearning(ctx, lid); ok {
			out = append(out, l)
		}
	}
	return newestFirst(out, learningLearnedAt, learningID, 0)
}

func learningLearnedAt(l entity.Learning) time.Time { return l.LearnedAt }
func learningID(l entity.Learning) string { return l.ID }
