package entity

import (
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
)

// Event is something that happened. OccurredAt and LearnedAt are independent:
// an event may be recorded long after it occurred.
type Event struct {
	ID           string    `json:"id,omitempty"`
	Description  string    `json:"description"`
	OccurredAt   time.Time `json:"occurred_at"`
	LearnedAt    time.Time `json:"learned_at"`
	EventType    EventType `json:"event_type"`
	Significance *string   `json:"significance,omitempty"`
}

// NewEvent constructs an event.
func NewEvent(description string, occurredAt, learnedAt time.Time, eventType EventType) Event {
	return Event{
		Description: Text(description),
		OccurredAt:  chrono.Normalize(occurredAt),
		LearnedAt:   chrono.Normalize(learnedAt),
		EventType:   eventType,
	}
}

// Document encodes the event.
func (e Event) Document() docstore.Document {
	doc := newDocument(ClassEvent, e.ID)
	doc["description"] = e.Description
	doc["occurred_at"] = chrono.Format(e.OccurredAt)
	doc["learned_at"] = chrono.Format(e.LearnedAt)
	doc["event_type"] = string(e.EventType)
	putOptString(doc, "significance", e.Significance)
	return doc
}

// EventFromDocument decodes an Event document.
func EventFromDocument(doc docstore.Document) (Event, error) {
	d := newDecoder(doc, ClassEvent)
	e := Event{
		Description:  d.str("description"),
		OccurredAt:   d.instant("occurred_at"),
		LearnedAt:    d.instant("learned_at"),
		EventType:    EventType(d.str("event_type")),
		Significance: d.optStr("significance"),
	}
	if d.err != nil {
		return Event{}, d.err
	}
	e.ID = d.id()
	return e, nil
}
