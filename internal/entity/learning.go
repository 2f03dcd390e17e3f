package entity

import (
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
)

// Learning is a piece of knowledge with a confidence in [0, 1].
//
// Learnings are never edited. A revision is a new Learning whose Supersedes
// names the old one; the old one stays queryable.
type Learning struct {
	ID         string    `json:"id,omitempty"`
	Content    string    `json:"content"`
	LearnedAt  time.Time `json:"learned_at"`
	Confidence float64   `json:"confidence"`
	Domain     Domain    `json:"domain"`
	Supersedes string    `json:"supersedes,omitempty"` // id of the superseded learning; "" when none
}

// NewLearning constructs a learning, clamping confidence into [0, 1].
func NewLearning(content string, learnedAt time.Time, confidence float64, domain Domain) Learning {
	return Learning{
		Content:    Text(content),
		LearnedAt:  chrono.Normalize(learnedAt),
		Confidence: ClampConfidence(confidence),
		Domain:     domain,
	}
}

// Document encodes the learning.
func (l Learning) Document() docstore.Document {
	doc := newDocument(ClassLearning, l.ID)
	doc["content"] = l.Content
	doc["learned_at"] = chrono.Format(l.LearnedAt)
	doc["confidence"] = l.Confidence
	doc["domain"] = string(l.Domain)
	if l.Supersedes != "" {
		doc["supersedes"] = docstore.NewRef(l.Supersedes)
	}
	return doc
}

// LearningFromDocument decodes a Learning document.
func LearningFromDocument(doc docstore.Document) (Learning, error) {
	d := newDecoder(doc, ClassLearning)
	l := Learning{
		Content:    d.str("content"),
		LearnedAt:  d.instant("learned_at"),
		Confidence: d.number("confidence"),
		Domain:     Domain(d.str("domain")),
		Supersedes: d.optRef("supersedes"),
	}
	if d.err != nil {
		return Learning{}, d.err
	}
	l.ID = d.id()
	return l, nil
}
