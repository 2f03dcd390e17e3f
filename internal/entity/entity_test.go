package entity

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
)

var (
	t0 = time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)
	t1 = time.Date(2026, 1, 14, 17, 30, 0, 500_000_000, time.UTC)
)

func strPtr(s string) *string {
	return &s
}

// storeRoundTrip encodes a document the way a backend persists it and
// decodes it back.
func storeRoundTrip(t *testing.T, doc docstore.Document) docstore.Document {
	t.Helper()
	data, err := docstore.Encode(doc)
	require.NoError(t, err)
	out, err := docstore.Decode(data)
	require.NoError(t, err)
	return out
}

func assertGolden(t *testing.T, name string, doc docstore.Document) {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.3, 0.0},
		{1.7, 1.0},
		{0.42, 0.42},
		{0, 0},
		{1, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampConfidence(tt.in), "clamp(%v)", tt.in)
	}
}

func TestNewLearning_ClampsConfidence(t *testing.T) {
	assert.Equal(t, 0.0, NewLearning("x", t0, -0.3, DomainMeta).Confidence)
	assert.Equal(t, 1.0, NewLearning("x", t0, 1.7, DomainMeta).Confidence)
	assert.Equal(t, 0.42, NewLearning("x", t0, 0.42, DomainMeta).Confidence)
}

func TestNewSet(t *testing.T) {
	assert.Nil(t, NewSet())
	assert.Nil(t, NewSet(""))
	assert.Equal(t, Set{"a", "b"}, NewSet("b", "a", "b", ""))

	// Composed and decomposed forms of "é" are the same member
	s := NewSet("caf\u00e9", "cafe\u0301")
	require.Len(t, s, 1)
	assert.True(t, s.Contains("caf\u00e9"))
	assert.False(t, s.Contains("cafe"))
}

func TestSet_Union(t *testing.T) {
	a := NewSet("x", "y")
	b := NewSet("y", "z")
	assert.Equal(t, Set{"x", "y", "z"}, a.Union(b, nil))
	assert.Nil(t, Set(nil).Union())
}

func TestParseEnums(t *testing.T) {
	et, err := ParseEventType("calibration")
	require.NoError(t, err)
	assert.Equal(t, EventCalibration, et)

	_, err = ParseEventType("incident")
	assert.Error(t, err)

	d, err := ParseDomain("relational")
	require.NoError(t, err)
	assert.Equal(t, DomainRelational, d)

	_, err = ParseDomain("PROCEDURAL")
	assert.Error(t, err)
}

func TestSession_RoundTrip(t *testing.T) {
	open := NewSession("2026-01-14-ops", t0, "ops", "ship schema")
	closed := open
	closed.ID = "Session/2026-01-14-ops"
	closed.Close(t1, strPtr("done"), NewSet("follow up"))

	for name, s := range map[string]Session{"open": open, "closed": closed} {
		t.Run(name, func(t *testing.T) {
			got, err := SessionFromDocument(storeRoundTrip(t, s.Document()))
			require.NoError(t, err)
			assert.Equal(t, s, got)
		})
	}
}

func TestSession_OptionalFieldsOmitted(t *testing.T) {
	doc := NewSession("s1", t0, "ops").Document()
	for _, field := range []string{"@id", "goals", "ended_at", "summary", "open_loops_at_end"} {
		_, present := doc[field]
		assert.False(t, present, field)
	}
}

func TestSession_Close(t *testing.T) {
	s := NewSession("s1", t0, "ops")
	s.Summary = strPtr("earlier")
	s.OpenLoopsAtEnd = NewSet("a")

	s.Close(t1, nil, nil)
	assert.False(t, s.IsOpen())
	assert.Equal(t, "earlier", *s.Summary)
	assert.Equal(t, Set{"a"}, s.OpenLoopsAtEnd)
}

func TestSession_Amend(t *testing.T) {
	s := NewSession("s1", t0, "ops")
	s.Amend(strPtr("draft"), NewSet("a"))
	assert.True(t, s.IsOpen(), "amending does not close")
	assert.Equal(t, "draft", *s.Summary)

	s.Amend(nil, Set{})
	assert.Equal(t, "draft", *s.Summary)
	assert.Empty(t, s.OpenLoopsAtEnd, "empty non-nil set clears")
	_, present := s.Document()["open_loops_at_end"]
	assert.False(t, present)
}

func TestEvent_RoundTrip(t *testing.T) {
	bare := NewEvent("deploy", t0, t1, EventSuccess)
	full := bare
	full.ID = "Event/e1"
	full.Significance = strPtr("first green deploy")

	for name, e := range map[string]Event{"bare": bare, "full": full} {
		t.Run(name, func(t *testing.T) {
			got, err := EventFromDocument(storeRoundTrip(t, e.Document()))
			require.NoError(t, err)
			assert.Equal(t, e, got)
		})
	}
}

func TestLearning_RoundTrip(t *testing.T) {
	bare := NewLearning("retry with backoff", t0, 0.7, DomainProcedural)
	full := bare
	full.ID = "Learning/l2"
	full.Supersedes = "Learning/l1"

	for name, l := range map[string]Learning{"bare": bare, "full": full} {
		t.Run(name, func(t *testing.T) {
			got, err := LearningFromDocument(storeRoundTrip(t, l.Document()))
			require.NoError(t, err)
			assert.Equal(t, l, got)
		})
	}
}

func TestDecision_RoundTrip(t *testing.T) {
	bare := NewDecision("use sqlite", t0, "local tool", "no server needed")
	full := NewDecision("use sqlite", t0, "local tool", "no server needed", "postgres", "sqlite")
	full.ID = "Decision/d1"
	full.RecordOutcome("worked", t1)

	for name, d := range map[string]Decision{"bare": bare, "full": full} {
		t.Run(name, func(t *testing.T) {
			got, err := DecisionFromDocument(storeRoundTrip(t, d.Document()))
			require.NoError(t, err)
			assert.Equal(t, d, got)
		})
	}
}

func TestRelationship_RoundTrip(t *testing.T) {
	gap := 3
	tests := map[string]Relationship{
		"produced": {Kind: SessionProducedLearning, From: "Session/s1", To: "Learning/l1"},
		"followed": {ID: "SessionFollowed/r1", Kind: SessionFollowed, From: "Session/s2", To: "Session/s1", GapDays: &gap},
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := RelationshipFromDocument(r.Kind, storeRoundTrip(t, r.Document()))
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestRelationship_ReferencesNormalized(t *testing.T) {
	r := Relationship{Kind: DecisionLedToEvent, From: "opsmem:///data/Decision/d1", To: "Event/e1"}
	doc := r.Document()
	assert.Equal(t, docstore.NewRef("Decision/d1"), doc["decision"])

	got, err := RelationshipFromDocument(DecisionLedToEvent, storeRoundTrip(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "Decision/d1", got.From)
}

func TestKindByClass(t *testing.T) {
	k, ok := KindByClass("LearningDerivedFromEvent")
	require.True(t, ok)
	assert.Equal(t, "learning", k.From)
	assert.Equal(t, "event", k.To)
	assert.True(t, k.HasField("event"))
	assert.False(t, k.HasField("session"))

	_, ok = KindByClass("Learning")
	assert.False(t, ok)
	assert.Len(t, Kinds(), 5)
}

func TestFromDocument_Errors(t *testing.T) {
	_, err := SessionFromDocument(docstore.Document{"@type": "Event"})
	require.Error(t, err)

	_, err = EventFromDocument(docstore.Document{
		"@type":       "Event",
		"description": "x",
		"occurred_at": "yesterday",
		"learned_at":  "2026-01-14T09:00:00Z",
		"event_type":  "failure",
	})
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "occurred_at", decodeErr.Field)

	_, err = LearningFromDocument(docstore.Document{
		"@type":      "Learning",
		"content":    "x",
		"learned_at": "2026-01-14T09:00:00Z",
		"domain":     "meta",
	})
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "confidence", decodeErr.Field)

	_, err = RelationshipFromDocument(SessionProducedLearning, docstore.Document{
		"@type":   "SessionProducedLearning",
		"session": docstore.NewRef("Session/s1"),
	})
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "learning", decodeErr.Field)
}

func TestDecode_AcceptsOffsetTimestamps(t *testing.T) {
	e, err := EventFromDocument(docstore.Document{
		"@type":       "Event",
		"@id":         "opsmem:///data/Event/e9",
		"description": "x",
		"occurred_at": "2026-01-14T12:00:00+02:00",
		"learned_at":  "2026-01-14T10:00:00Z",
		"event_type":  "external",
	})
	require.NoError(t, err)
	assert.Equal(t, "Event/e9", e.ID)
	assert.Equal(t, e.LearnedAt, e.OccurredAt)
	assert.Equal(t, "2026-01-14T10:00:00Z", chrono.Format(e.OccurredAt))
}

func TestGolden_Documents(t *testing.T) {
	sessionClosed := NewSession("2026-01-14-ops", t0, "ops", "ship schema")
	sessionClosed.ID = "Session/2026-01-14-ops"
	sessionClosed.Close(t1, strPtr("Schema shipped; alert review deferred."), NewSet("tune retention", "review alerts"))

	event := NewEvent("Disk filled on the ingest node",
		time.Date(2026, 1, 13, 22, 10, 0, 0, time.UTC),
		time.Date(2026, 1, 14, 9, 5, 0, 0, time.UTC),
		EventFailure)
	event.ID = "Event/e1"
	event.Significance = strPtr("Caused a two hour ingest gap")

	learning := NewLearning("Rotate ingest logs daily, not weekly",
		time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC), 0.85, DomainProcedural)
	learning.ID = "Learning/l2"
	learning.Supersedes = "opsmem:///data/Learning/l1"

	decision := NewDecision("Move ingest logs to a separate volume",
		time.Date(2026, 1, 14, 11, 0, 0, 0, time.UTC),
		"Ingest node disk filled overnight",
		"Isolates log growth from data",
		"separate volume", "add disk alert only")
	decision.ID = "Decision/d1"
	decision.RecordOutcome("No recurrence in two weeks", time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC))

	gap := 3
	followed := Relationship{
		Kind:    SessionFollowed,
		From:    "Session/2026-01-17-ops",
		To:      "Session/2026-01-14-ops",
		GapDays: &gap,
	}

	tests := map[string]docstore.Document{
		"session_open":          NewSession("2026-01-14-ops", t0, "ops", "ship schema", "review alerts").Document(),
		"session_closed":        sessionClosed.Document(),
		"event":                 event.Document(),
		"learning_superseding":  learning.Document(),
		"decision_with_outcome": decision.Document(),
		"session_followed":      followed.Document(),
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			assertGolden(t, name, doc)
		})
	}
}
