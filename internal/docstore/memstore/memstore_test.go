package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/docstore/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s := New()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestWithIDGenerator(t *testing.T) {
	ctx := context.Background()
	s := New(WithIDGenerator(docstore.NewSequenceGenerator("fixed")))
	require.NoError(t, s.DeclareClass(ctx, storetest.Note, false))

	id, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Note/fixed-1", id)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.DeclareClass(ctx, storetest.Note, false))
	require.NoError(t, s.Close())

	_, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "x"})
	assert.ErrorIs(t, err, docstore.ErrClosed)
	_, err = s.Query(ctx, "Note", nil)
	assert.ErrorIs(t, err, docstore.ErrClosed)
	_, err = s.DeclaredClasses(ctx)
	assert.EqualError(t, err, "classes: store closed")
}
