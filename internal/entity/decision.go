package entity

import (
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
)

// Decision records a choice and, later, how it turned out. The outcome
// fields are its only mutable part.
type Decision struct {
	ID                string     `json:"id,omitempty"`
	Description       string     `json:"description"`
	MadeAt            time.Time  `json:"made_at"`
	Context           string     `json:"context"`
	Rationale         string     `json:"rationale"`
	OptionsConsidered Set        `json:"options_considered,omitempty"`
	Outcome           *string    `json:"outcome,omitempty"`
	OutcomeAssessedAt *time.Time `json:"outcome_assessed_at,omitempty"`
}

// NewDecision constructs a decision without an outcome.
func NewDecision(description string, madeAt time.Time, context, rationale string, options ...string) Decision {
	return Decision{
		Description:       Text(description),
		MadeAt:            chrono.Normalize(madeAt),
		Context:           Text(context),
		Rationale:         Text(rationale),
		OptionsConsidered: NewSet(options...),
	}
}

// RecordOutcome sets the outcome and when it was assessed.
func (d *Decision) RecordOutcome(outcome string, assessedAt time.Time) {
	d.Outcome = TextPtr(outcome)
	d.OutcomeAssessedAt = chrono.Ptr(assessedAt)
}

// Document encodes the decision.
func (d Decision) Document() docstore.Document {
	doc := newDocument(ClassDecision, d.ID)
	doc["description"] = d.Description
	doc["made_at"] = chrono.Format(d.MadeAt)
	doc["context"] = d.Context
	doc["rationale"] = d.Rationale
	putSet(doc, "options_considered", d.OptionsConsidered)
	putOptString(doc, "outcome", d.Outcome)
	putOptTime(doc, "outcome_assessed_at", d.OutcomeAssessedAt)
	return doc
}

// DecisionFromDocument decodes a Decision document.
func DecisionFromDocument(doc docstore.Document) (Decision, error) {
	d := newDecoder(doc, ClassDecision)
	dec := Decision{
		Description:       d.str("description"),
		MadeAt:            d.instant("made_at"),
		Context:           d.str("context"),
		Rationale:         d.str("rationale"),
		OptionsConsidered: d.set("options_considered"),
		Outcome:           d.optStr("outcome"),
		OutcomeAssessedAt: d.optInstant("outcome_assessed_at"),
	}
	if d.err != nil {
		return Decision{}, d.err
	}
	dec.ID = d.id()
	return dec, nil
}
