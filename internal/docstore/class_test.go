package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noteClass() ClassDescriptor {
	return ClassDescriptor{
		Name: "Note",
		Key:  KeyRandom,
		Fields: []FieldSpec{
			{Name: "text", Type: TypeString, Cardinality: Required},
			{Name: "at", Type: TypeDateTime, Cardinality: Required},
			{Name: "weight", Type: TypeDecimal, Cardinality: Optional},
			{Name: "count", Type: TypeInteger, Cardinality: Optional},
			{Name: "tags", Type: TypeString, Cardinality: Set},
			{Name: "parent", Type: "Note", Cardinality: Optional},
		},
	}
}

func topicClass() ClassDescriptor {
	return ClassDescriptor{
		Name:      "Topic",
		Key:       KeyLexical,
		KeyFields: []string{"slug"},
		Fields: []FieldSpec{
			{Name: "slug", Type: TypeString, Cardinality: Required},
			{Name: "title", Type: TypeString, Cardinality: Optional},
		},
	}
}

func TestClassDescriptor_Check(t *testing.T) {
	require.NoError(t, noteClass().Check())
	require.NoError(t, topicClass().Check())

	bad := []ClassDescriptor{
		{},
		{Name: "A/B", Key: KeyRandom},
		{Name: "A", Key: "sequential"},
		{Name: "A", Key: KeyRandom, KeyFields: []string{"x"}},
		{Name: "A", Key: KeyLexical},
		{Name: "A", Key: KeyLexical, KeyFields: []string{"missing"}},
		{Name: "A", Key: KeyRandom, Fields: []FieldSpec{{Name: "x", Type: TypeString, Cardinality: "many"}}},
		{Name: "A", Key: KeyRandom, Fields: []FieldSpec{{Name: "@x", Type: TypeString, Cardinality: Required}}},
		{Name: "A", Key: KeyRandom, Fields: []FieldSpec{
			{Name: "x", Type: TypeString, Cardinality: Required},
			{Name: "x", Type: TypeString, Cardinality: Required},
		}},
	}
	for i, c := range bad {
		assert.Error(t, c.Check(), "descriptor %d", i)
	}
}

func TestPrepare_AssignsRandomID(t *testing.T) {
	doc := Document{TypeField: "Note", "text": "hi", "at": "2026-01-14T10:00:00Z"}

	out, err := Prepare(noteClass(), doc, NewSequenceGenerator("n"))
	require.NoError(t, err)
	assert.Equal(t, "Note/n-1", out.ID())
	_, hasID := doc[IDField]
	assert.False(t, hasID, "input must not be modified")
}

func TestPrepare_LexicalKey(t *testing.T) {
	doc := Document{TypeField: "Topic", "slug": "2026-01-14 ops"}

	out, err := Prepare(topicClass(), doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "Topic/2026-01-14%20ops", out.ID())
}

func TestPrepare_NormalizesReferences(t *testing.T) {
	doc := Document{
		TypeField: "Note",
		"text":    "child",
		"at":      "2026-01-14T10:00:00Z",
		"parent":  NewRef("opsmem:///data/Note/p1"),
		"tags":    []string{"a", "b"},
		"count":   3,
	}

	out, err := Prepare(noteClass(), doc, NewSequenceGenerator("n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{IDField: "Note/p1", TypeField: RefMarker}, out["parent"])
	assert.Equal(t, []any{"a", "b"}, out["tags"])
	assert.Equal(t, float64(3), out["count"])
}

func TestValidate_Rejections(t *testing.T) {
	base := func() Document {
		return Document{TypeField: "Note", "text": "x", "at": "2026-01-14T10:00:00Z"}
	}
	tests := []struct {
		name  string
		edit  func(Document)
		field string
	}{
		{"wrong type", func(d Document) { d[TypeField] = "Other" }, TypeField},
		{"missing required", func(d Document) { delete(d, "text") }, "text"},
		{"undeclared field", func(d Document) { d["color"] = "red" }, "color"},
		{"null optional", func(d Document) { d["weight"] = nil }, "weight"},
		{"bad datetime", func(d Document) { d["at"] = "noon" }, "at"},
		{"string for decimal", func(d Document) { d["weight"] = "heavy" }, "weight"},
		{"fraction for integer", func(d Document) { d["count"] = 1.5 }, "count"},
		{"scalar for set", func(d Document) { d["tags"] = "a" }, "tags"},
		{"bare number for ref", func(d Document) { d["parent"] = 7 }, "parent"},
		{"wrong ref marker", func(d Document) { d["parent"] = map[string]any{IDField: "Note/1", TypeField: "Note"} }, "parent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := base()
			tt.edit(doc)
			_, err := Prepare(noteClass(), doc, NewSequenceGenerator("n"))
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestPrepareReplace(t *testing.T) {
	doc := Document{IDField: "opsmem:///data/Topic/ops", TypeField: "Topic", "slug": "ops", "title": "Ops"}
	out, err := PrepareReplace(topicClass(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Topic/ops", out.ID())

	doc["slug"] = "renamed"
	_, err = PrepareReplace(topicClass(), doc)
	assert.True(t, IsValidation(err))

	delete(doc, IDField)
	_, err = PrepareReplace(topicClass(), doc)
	assert.True(t, IsValidation(err))
}

func TestMatches(t *testing.T) {
	doc, err := canonical(Document{
		TypeField: "Note",
		"text":    "x",
		"tags":    []string{"a", "b"},
		"parent":  NewRef("Note/p1"),
	})
	require.NoError(t, err)

	assert.True(t, Matches(doc, nil))
	assert.True(t, Matches(doc, Filter{"text": "x"}))
	assert.False(t, Matches(doc, Filter{"text": "y"}))
	assert.True(t, Matches(doc, Filter{"tags": "b"}))
	assert.False(t, Matches(doc, Filter{"tags": "c"}))
	assert.True(t, Matches(doc, Filter{"parent": NewRef("opsmem:///data/Note/p1")}))
	assert.False(t, Matches(doc, Filter{"parent": NewRef("Note/p2")}))
	assert.False(t, Matches(doc, Filter{"missing": "x"}))
}

func TestRefID(t *testing.T) {
	assert.Equal(t, "Note/1", RefID(NewRef("Note/1")))
	assert.Equal(t, "Note/1", RefID(map[string]any{IDField: "Note/1", TypeField: RefMarker}))
	assert.Equal(t, "Note/1", RefID("Note/1"))
	assert.Equal(t, "", RefID(42))
	var nilRef *Ref
	assert.Equal(t, "", RefID(nilRef))
}

func TestOpError(t *testing.T) {
	err := NewOpError("get", "Note/1", ErrNotFound)
	assert.Equal(t, "get Note/1: document not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsClassExists(err))

	keyless := NewOpError("classes", "", ErrClosed)
	assert.Equal(t, "classes: store closed", keyless.Error())
	var op *OpError
	require.ErrorAs(t, keyless, &op)
	assert.Equal(t, "classes", op.Op)
	assert.Empty(t, op.Key)
}
