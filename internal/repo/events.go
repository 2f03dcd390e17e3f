package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/entity"
)

// EventParams are the inputs to CreateEvent. Zero timestamps mean now.
type EventParams struct {
	Description  string
	EventType    entity.EventType
	OccurredAt   time.Time
	LearnedAt    time.Time
	Significance string
}

// CreateEvent inserts a new event.
func (r *Repository) CreateEvent(ctx context.Context, p EventParams) (entity.Event, error) {
	if !p.EventType.Valid() {
		return entity.Event{}, fmt.Errorf("create event: invalid event type %q", p.EventType)
	}
	e := entity.NewEvent(p.Description, r.orNow(p.OccurredAt), r.orNow(p.LearnedAt), p.EventType)
	if p.Significance != "" {
		e.Significance = entity.TextPtr(p.Significance)
	}
	id, err := r.store.Insert(ctx, e.Document())
	if err != nil {
		return entity.Event{}, fmt.Errorf("create event: %w", err)
	}
	e.ID = id
	return e, nil
}

// GetEvent fetches an event by store id.
func (r *Repository) GetEvent(ctx context.Context, id string) (entity.Event, bool) {
	return fetch(ctx, r, id, entity.EventFromDocument)
}

// ListEvents returns events, most recently occurred first. An empty
// eventType matches every type.
func (r *Repository) ListEvents(ctx context.Context, eventType entity.EventType, limit int) []entity.Event {
	return newestFirst(r.Events(ctx, eventType), eventOccurredAt, eventID, limit)
}

// Events returns every event of the given type in store order.
func (r *Repository) Events(ctx context.Context, eventType entity.EventType) []entity.Event {
	var filter docstore.Filter
	if eventType != "" {
		filter = docstore.Filter{"event_type": string(eventType)}
	}
	return scan(ctx, r, entity.ClassEvent, filter, entity.EventFromDocument)
}

func eventOccurredAt(e entity.Event) time.Time { return e.OccurredAt }
func eventID(e entity.Event) string { return e.ID }
