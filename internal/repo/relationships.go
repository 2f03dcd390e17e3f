package repo

import (
	"context"
	"fmt"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/ident"
)

type linkOptions struct {
	gapDays *int
}

// LinkOption sets an extra field on a relationship.
type LinkOption func(*linkOptions)

// WithGapDays sets gap_days on a SessionFollowed link.
func WithGapDays(days int) LinkOption {
	return func(o *linkOptions) { o.gapDays = &days }
}

// Link records a relationship of kind from one entity to another and returns
// its id. Neither end is checked for existence.
func (r *Repository) Link(ctx context.Context, kind entity.Kind, from, to string, opts ...LinkOption) (string, error) {
	if known, ok := entity.KindByClass(kind.Class); !ok || known != kind {
		return "", fmt.Errorf("link %s: unknown relationship kind", kind.Class)
	}
	var o linkOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.gapDays != nil && kind != entity.SessionFollowed {
		return "", fmt.Errorf("link %s: gap_days only applies to %s", kind.Class, entity.SessionFollowed.Class)
	}
	if ident.Normalize(from) == "" || ident.Normalize(to) == "" {
		return "", fmt.Errorf("link %s: both ends are required", kind.Class)
	}

	rel := entity.Relationship{Kind: kind, From: from, To: to, GapDays: o.gapDays}
	id, err := r.store.Insert(ctx, rel.Document())
	if err != nil {
		return "", fmt.Errorf("link %s %s -> %s: %w", kind.Class, ident.Normalize(from), ident.Normalize(to), err)
	}
	return id, nil
}

// RelatedTo scans every relationship of kind and collects the otherField
// reference of each record whose roleField refers to entityID. Ids are
// compared in normalized form; order follows the store. Fields that are not
// the kind's reference fields yield nothing.
func (r *Repository) RelatedTo(ctx context.Context, entityID string, kind entity.Kind, roleField, otherField string) []string {
	if !kind.HasField(roleField) || !kind.HasField(otherField) || roleField == otherField {
		r.logger.Warn("relationship field not in kind", "class", kind.Class, "role", roleField, "other", otherField)
		return []string{}
	}
	target := ident.Normalize(entityID)
	if target == "" {
		return []string{}
	}
	docs, err := r.store.Query(ctx, kind.Class, nil)
	if err != nil {
		r.logger.Warn("relationship scan failed", "class", kind.Class, "error", err)
		return []string{}
	}
	out := []string{}
	for _, doc := range docs {
		if !ident.Match(docstore.RefID(doc[roleField]), target) {
			continue
		}
		if other := ident.Normalize(docstore.RefID(doc[otherField])); other != "" {
			out = append(out, other)
		}
	}
	return out
}

// Relationships returns every stored relationship of kind.
func (r *Repository) Relationships(ctx context.Context, kind entity.Kind) []entity.Relationship {
	return scan(ctx, r, kind.Class, nil, func(doc docstore.Document) (entity.Relationship, error) {
		return entity.RelationshipFromDocument(kind, doc)
	})
}
