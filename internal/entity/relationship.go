package entity

import (
	"fmt"

	"github.com/roach88/opsmemory/internal/docstore"
)

// Kind describes a relationship class: its name and the two reference
// fields it links, From and To.
type Kind struct {
	Class string `json:"class"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// The relationship kinds.
var (
	SessionProducedLearning  = Kind{Class: "SessionProducedLearning", From: "session", To: "learning"}
	SessionProducedDecision  = Kind{Class: "SessionProducedDecision", From: "session", To: "decision"}
	LearningDerivedFromEvent = Kind{Class: "LearningDerivedFromEvent", From: "learning", To: "event"}
	DecisionLedToEvent       = Kind{Class: "DecisionLedToEvent", From: "decision", To: "event"}
	SessionFollowed          = Kind{Class: "SessionFollowed", From: "later_session", To: "earlier_session"}
)

// Kinds lists every relationship kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		SessionProducedLearning,
		SessionProducedDecision,
		LearningDerivedFromEvent,
		DecisionLedToEvent,
		SessionFollowed,
	}
}

// KindByClass looks up a relationship kind by class name.
func KindByClass(class string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Class == class {
			return k, true
		}
	}
	return Kind{}, false
}

// HasField reports whether field is one of the kind's reference fields.
func (k Kind) HasField(field string) bool {
	return field == k.From || field == k.To
}

// Relationship is a stored edge between two entities. GapDays is only
// meaningful for SessionFollowed.
type Relationship struct {
	ID      string `json:"id,omitempty"`
	Kind    Kind   `json:"kind"`
	From    string `json:"from"`
	To      string `json:"to"`
	GapDays *int   `json:"gap_days,omitempty"`
}

// Document encodes the relationship with both ends as references.
func (r Relationship) Document() docstore.Document {
	doc := newDocument(r.Kind.Class, r.ID)
	doc[r.Kind.From] = docstore.NewRef(r.From)
	doc[r.Kind.To] = docstore.NewRef(r.To)
	if r.GapDays != nil {
		doc["gap_days"] = *r.GapDays
	}
	return doc
}

// RelationshipFromDocument decodes a relationship document of kind k.
func RelationshipFromDocument(k Kind, doc docstore.Document) (Relationship, error) {
	if k.Class == "" {
		return Relationship{}, fmt.Errorf("decode relationship: empty kind")
	}
	d := newDecoder(doc, k.Class)
	r := Relationship{
		Kind:    k,
		From:    d.ref(k.From),
		To:      d.ref(k.To),
		GapDays: d.optInt("gap_days"),
	}
	if d.err != nil {
		return Relationship{}, d.err
	}
	r.ID = d.id()
	return r, nil
}
