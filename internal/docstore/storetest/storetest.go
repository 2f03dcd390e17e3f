// Package storetest is a conformance suite run against every docstore backend.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/ident"
)

// Opener creates a fresh, empty store for one subtest.
type Opener func(t *testing.T) docstore.Store

// Classes used by the suite.
var (
	Note = docstore.ClassDescriptor{
		Name: "Note",
		Key:  docstore.KeyRandom,
		Fields: []docstore.FieldSpec{
			{Name: "text", Type: docstore.TypeString, Cardinality: docstore.Required},
			{Name: "kind", Type: docstore.TypeString, Cardinality: docstore.Optional},
			{Name: "tags", Type: docstore.TypeString, Cardinality: docstore.Set},
			{Name: "score", Type: docstore.TypeDecimal, Cardinality: docstore.Optional},
		},
	}
	Topic = docstore.ClassDescriptor{
		Name:      "Topic",
		Key:       docstore.KeyLexical,
		KeyFields: []string{"slug"},
		Fields: []docstore.FieldSpec{
			{Name: "slug", Type: docstore.TypeString, Cardinality: docstore.Required},
			{Name: "title", Type: docstore.TypeString, Cardinality: docstore.Optional},
		},
	}
	Link = docstore.ClassDescriptor{
		Name: "Link",
		Key:  docstore.KeyRandom,
		Fields: []docstore.FieldSpec{
			{Name: "note", Type: "Note", Cardinality: docstore.Required},
			{Name: "topic", Type: "Topic", Cardinality: docstore.Required},
		},
	}
)

// Run executes the full conformance suite.
func Run(t *testing.T, open Opener) {
	t.Run("DeclareClass", func(t *testing.T) { testDeclareClass(t, open(t)) })
	t.Run("InsertGet", func(t *testing.T) { testInsertGet(t, open(t)) })
	t.Run("InsertValidation", func(t *testing.T) { testInsertValidation(t, open(t)) })
	t.Run("LexicalKey", func(t *testing.T) { testLexicalKey(t, open(t)) })
	t.Run("Query", func(t *testing.T) { testQuery(t, open(t)) })
	t.Run("QueryReferences", func(t *testing.T) { testQueryReferences(t, open(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, open(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, open(t)) })
}

func declareAll(t *testing.T, s docstore.Store) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []docstore.ClassDescriptor{Note, Topic, Link} {
		require.NoError(t, s.DeclareClass(ctx, c, false))
	}
}

func testDeclareClass(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	names, err := s.DeclaredClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.DeclareClass(ctx, Note, false))
	err = s.DeclareClass(ctx, Note, false)
	assert.True(t, docstore.IsClassExists(err), "got %v", err)

	wider := Note
	wider.Fields = append(append([]docstore.FieldSpec{}, Note.Fields...),
		docstore.FieldSpec{Name: "extra", Type: docstore.TypeString, Cardinality: docstore.Optional})
	require.NoError(t, s.DeclareClass(ctx, wider, true))

	_, err = s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "t", "extra": "ok"})
	require.NoError(t, err, "replaced descriptor should accept the new field")

	require.NoError(t, s.DeclareClass(ctx, Topic, false))
	names, err = s.DeclaredClasses(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Note", "Topic"}, names)

	err = s.DeclareClass(ctx, docstore.ClassDescriptor{Name: "Broken", Key: "bogus"}, false)
	assert.Error(t, err)
}

func testInsertGet(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	id, err := s.Insert(ctx, docstore.Document{
		docstore.TypeField: "Note",
		"text":             "first <note> & more",
		"tags":             []string{"x", "y"},
		"score":            0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, "Note", ident.Class(id))
	assert.Equal(t, id, ident.Normalize(id), "backends return the short form")

	for _, form := range []string{id, ident.Qualify(id)} {
		doc, err := s.Get(ctx, form)
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID())
		assert.Equal(t, "Note", doc.Type())
		assert.Equal(t, "first <note> & more", doc["text"])
		assert.ElementsMatch(t, []any{"x", "y"}, doc["tags"])
		assert.Equal(t, 0.25, doc["score"])
		_, hasKind := doc["kind"]
		assert.False(t, hasKind, "absent optional field stays absent")
	}
}

func testInsertValidation(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	_, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Ghost", "text": "boo"})
	assert.ErrorIs(t, err, docstore.ErrUnknownClass)

	_, err = s.Insert(ctx, docstore.Document{docstore.TypeField: "Note"})
	assert.True(t, docstore.IsValidation(err), "got %v", err)

	_, err = s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "x", "kind": nil})
	assert.True(t, docstore.IsValidation(err), "got %v", err)
}

func testLexicalKey(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	id, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Topic", "slug": "2026-01-14-ops"})
	require.NoError(t, err)
	assert.Equal(t, "Topic/2026-01-14-ops", id)

	_, err = s.Insert(ctx, docstore.Document{docstore.TypeField: "Topic", "slug": "2026-01-14-ops", "title": "again"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
}

func testQuery(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	for _, n := range []docstore.Document{
		{docstore.TypeField: "Note", "text": "a", "kind": "red", "tags": []string{"t1"}},
		{docstore.TypeField: "Note", "text": "b", "kind": "blue", "tags": []string{"t1", "t2"}},
		{docstore.TypeField: "Note", "text": "c", "kind": "red"},
	} {
		_, err := s.Insert(ctx, n)
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Topic", "slug": "red"})
	require.NoError(t, err)

	all, err := s.Query(ctx, "Note", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	red, err := s.Query(ctx, "Note", docstore.Filter{"kind": "red"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"a", "c"}, texts(red))

	tagged, err := s.Query(ctx, "Note", docstore.Filter{"tags": "t2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"b"}, texts(tagged))

	none, err := s.Query(ctx, "Note", docstore.Filter{"kind": "green"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	empty, err := s.Query(ctx, "Link", nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testQueryReferences(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	noteID, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "n"})
	require.NoError(t, err)
	topicID, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Topic", "slug": "s"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, docstore.Document{
		docstore.TypeField: "Link",
		"note":             docstore.NewRef(ident.Qualify(noteID)),
		"topic":            docstore.NewRef(topicID),
	})
	require.NoError(t, err)

	links, err := s.Query(ctx, "Link", docstore.Filter{"note": docstore.NewRef(noteID)})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, noteID, docstore.RefID(links[0]["note"]))
	assert.Equal(t, topicID, docstore.RefID(links[0]["topic"]))
}

func testReplace(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	id, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "before", "kind": "k"})
	require.NoError(t, err)

	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	doc["text"] = "after"
	delete(doc, "kind")
	doc[docstore.IDField] = ident.Qualify(id)
	require.NoError(t, s.Replace(ctx, doc))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got["text"])
	_, hasKind := got["kind"]
	assert.False(t, hasKind, "replace is wholesale")

	err = s.Replace(ctx, docstore.Document{docstore.IDField: "Note/nope", docstore.TypeField: "Note", "text": "x"})
	assert.True(t, docstore.IsNotFound(err), "got %v", err)

	err = s.Replace(ctx, docstore.Document{docstore.IDField: id, docstore.TypeField: "Note"})
	assert.True(t, docstore.IsValidation(err), "got %v", err)
}

func testGetMissing(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	declareAll(t, s)

	_, err := s.Get(ctx, "Note/does-not-exist")
	assert.True(t, docstore.IsNotFound(err), "got %v", err)
}

func texts(docs []docstore.Document) []any {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["text"])
	}
	return out
}
