package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/docstore/storetest"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		return createTestStore(t)
	})
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.DeclareClass(ctx, storetest.Note, false))
	id, err := s1.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "kept"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	doc, err := s2.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kept", doc["text"])

	names, err := s2.DeclaredClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Note"}, names)
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestWithIDGenerator(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(docstore.NewSequenceGenerator("seq")))
	require.NoError(t, s.DeclareClass(ctx, storetest.Note, false))

	id, err := s.Insert(ctx, docstore.Document{docstore.TypeField: "Note", "text": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Note/seq-1", id)
}
