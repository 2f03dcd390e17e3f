package entity

import (
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
)

// Document class names of the entity kinds.
const (
	ClassSession  = "Session"
	ClassEvent    = "Event"
	ClassLearning = "Learning"
	ClassDecision = "Decision"
)

// Session is one working session, keyed by a caller-chosen SessionID.
//
// A session is open until EndedAt is set. Closing is its only mutation.
type Session struct {
	ID             string     `json:"id,omitempty"` // store id; "" before insert
	SessionID      string     `json:"session_id"`
	StartedAt      time.Time  `json:"started_at"`
	Mode           string     `json:"mode"`
	Goals          Set        `json:"goals,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Summary        *string    `json:"summary,omitempty"`
	OpenLoopsAtEnd Set        `json:"open_loops_at_end,omitempty"`
}

// NewSession constructs an open session.
func NewSession(sessionID string, startedAt time.Time, mode string, goals ...string) Session {
	return Session{
		SessionID: sessionID,
		StartedAt: chrono.Normalize(startedAt),
		Mode:      Text(mode),
		Goals:     NewSet(goals...),
	}
}

// IsOpen reports whether the session has not been closed.
func (s Session) IsOpen() bool {
	return s.EndedAt == nil
}

// Close marks the session ended at t, then applies Amend. Closing an ended
// session moves ended_at to t.
func (s *Session) Close(t time.Time, summary *string, openLoops Set) {
	s.EndedAt = chrono.Ptr(t)
	s.Amend(summary, openLoops)
}

// Amend overwrites the summary and open loops. A nil argument leaves the field
// unchanged; a non-nil empty openLoops clears it.
func (s *Session) Amend(summary *string, openLoops Set) {
	if summary != nil {
		s.Summary = TextPtr(*summary)
	}
	if openLoops != nil {
		s.OpenLoopsAtEnd = openLoops
	}
}

// Document encodes the session.
func (s Session) Document() docstore.Document {
	doc := newDocument(ClassSession, s.ID)
	doc["session_id"] = s.SessionID
	doc["started_at"] = chrono.Format(s.StartedAt)
	doc["mode"] = s.Mode
	putSet(doc, "goals", s.Goals)
	putOptTime(doc, "ended_at", s.EndedAt)
	putOptString(doc, "summary", s.Summary)
	putSet(doc, "open_loops_at_end", s.OpenLoopsAtEnd)
	return doc
}

// SessionFromDocument decodes a Session document.
func SessionFromDocument(doc docstore.Document) (Session, error) {
	d := newDecoder(doc, ClassSession)
	s := Session{
		SessionID:      d.str("session_id"),
		StartedAt:      d.instant("started_at"),
		Mode:           d.str("mode"),
		Goals:          d.set("goals"),
		EndedAt:        d.optInstant("ended_at"),
		Summary:        d.optStr("summary"),
		OpenLoopsAtEnd: d.set("open_loops_at_end"),
	}
	if d.err != nil {
		return Session{}, d.err
	}
	s.ID = d.id()
	return s, nil
}
