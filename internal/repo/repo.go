// Package repo is the entity and relationship repository over a
// docstore.Store.
//
// Read paths never fail: a missing document and a store fault are both
// reported as absence (a false ok, or an empty slice), and undecodable
// documents are skipped. Write paths return every fault, wrapped with the
// operation and key.
//
// Lists are sorted most recent first by each kind's defining timestamp and
// truncated afterwards; the store gives no ordering guarantee.
package repo

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/ident"
)

// ErrNotFound is returned by update operations whose target does not exist
// or cannot be read.
var ErrNotFound = errors.New("not found")

// Repository performs entity and relationship operations on a store.
type Repository struct {
	store  docstore.Store
	clock  chrono.Clock
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the clock used for defaulted timestamps.
func WithClock(c chrono.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New creates a Repository over store.
func New(store docstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		clock:  chrono.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Repository) Store() docstore.Store {
	return r.store
}

// Now returns the repository clock's current instant.
func (r *Repository) Now() time.Time {
	return r.clock.Now()
}

// orNow returns t, or the clock's instant when t is zero.
func (r *Repository) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return r.clock.Now()
	}
	return chrono.Normalize(t)
}

// fetch reads one document, reporting any fault as absence.
func fetch[T any](ctx context.Context, r *Repository, id string, decode func(docstore.Document) (T, error)) (T, bool) {
	var zero T
	if ident.Normalize(id) == "" {
		return zero, false
	}
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		if !docstore.IsNotFound(err) {
			r.logger.Warn("read failed", "id", id, "error", err)
		}
		return zero, false
	}
	v, err := decode(doc)
	if err != nil {
		r.logger.Warn("skipping undecodable document", "id", id, "error", err)
		return zero, false
	}
	return v, true
}

// scan queries documents and decodes each, skipping failures. A store fault
// yields an empty result.
func scan[T any](ctx context.Context, r *Repository, class string, filter docstore.Filter, decode func(docstore.Document) (T, error)) []T {
	docs, err := r.store.Query(ctx, class, filter)
	if err != nil {
		r.logger.Warn("query failed", "class", class, "error", err)
		return []T{}
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			r.logger.Warn("skipping undecodable document", "class", class, "id", doc.ID(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// newestFirst sorts items by descending timestamp, breaking ties by id, and
// keeps at most limit of them. A limit of zero or less keeps all.
func newestFirst[T any](items []T, at func(T) time.Time, id func(T) string, limit int) []T {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := at(items[i]), at(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return id(items[i]) < id(items[j])
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
