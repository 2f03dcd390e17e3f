package repo

import (
	"context"

	"github.com/roach88/opsmemory/internal/entity"
)

// Counts returns the number of stored documents per entity class. A class
// whose query fails is reported as zero.
func (r *Repository) Counts(ctx context.Context) map[string]int {
	counts := make(map[string]int, 4)
	for _, class := range []string{entity.ClassSession, entity.ClassEvent, entity.ClassLearning, entity.ClassDecision} {
		docs, err := r.store.Query(ctx, class, nil)
		if err != nil {
			r.logger.Warn("count failed", "class", class, "error", err)
		}
		counts[class] = len(docs)
	}
	return counts
}
