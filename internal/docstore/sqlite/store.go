package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/ident"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on documents.type
const currentSchemaVersion = 1

// Compile-time contract assertion.
var _ docstore.Store = (*Store)(nil)

// Store is a docstore.Store backed by a SQLite database file.
type Store struct {
	db  *sql.DB
	gen docstore.IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the UUIDv7 id generator.
func WithIDGenerator(gen docstore.IDGenerator) Option {
	return func(s *Store) { s.gen = gen }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, gen: docstore.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func (s *Store) DeclareClass(ctx context.Context, class docstore.ClassDescriptor, replace bool) error {
	if err := class.Check(); err != nil {
		return docstore.NewOpError("declare", class.Name, err)
	}
	data, err := json.Marshal(class)
	if err != nil {
		return docstore.NewOpError("declare", class.Name, err)
	}

	query := `INSERT INTO classes (name, descriptor) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`
	if replace {
		query = `INSERT INTO classes (name, descriptor) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET descriptor = excluded.descriptor`
	}
	result, err := s.db.ExecContext(ctx, query, class.Name, string(data))
	if err != nil {
		return docstore.NewOpError("declare", class.Name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return docstore.NewOpError("declare", class.Name, err)
	}
	if n == 0 {
		return docstore.NewOpError("declare", class.Name, docstore.ErrClassExists)
	}
	return nil
}

func (s *Store) DeclaredClasses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM classes ORDER BY name`)
	if err != nil {
		return nil, docstore.NewOpError("classes", "", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, docstore.NewOpError("classes", "", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, docstore.NewOpError("classes", "", err)
	}
	return names, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lookupClass(ctx context.Context, q queryer, name string) (docstore.ClassDescriptor, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT descriptor FROM classes WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.ClassDescriptor{}, docstore.ErrUnknownClass
	}
	if err != nil {
		return docstore.ClassDescriptor{}, err
	}
	var class docstore.ClassDescriptor
	if err := json.Unmarshal([]byte(data), &class); err != nil {
		return docstore.ClassDescriptor{}, fmt.Errorf("decode class %s: %w", name, err)
	}
	return class, nil
}

func (s *Store) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	class := doc.Type()
	desc, err := lookupClass(ctx, s.db, class)
	if err != nil {
		return "", docstore.NewOpError("insert", class, err)
	}
	prepared, err := docstore.Prepare(desc, doc, s.gen)
	if err != nil {
		return "", docstore.NewOpError("insert", class, err)
	}
	id := prepared.ID()
	body, err := docstore.Encode(prepared)
	if err != nil {
		return "", docstore.NewOpError("insert", id, err)
	}

	// ON CONFLICT DO NOTHING turns a key collision into zero affected rows
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, type, body) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, class, string(body))
	if err != nil {
		return "", docstore.NewOpError("insert", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return "", docstore.NewOpError("insert", id, err)
	}
	if n == 0 {
		return "", docstore.NewOpError("insert", id, docstore.ErrDuplicateKey)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (docstore.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, ident.Normalize(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.NewOpError("get", id, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, docstore.NewOpError("get", id, err)
	}
	doc, err := docstore.Decode([]byte(body))
	if err != nil {
		return nil, docstore.NewOpError("get", id, err)
	}
	return doc, nil
}

func (s *Store) Query(ctx context.Context, typeName string, filter docstore.Filter) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM documents WHERE type = ?`, typeName)
	if err != nil {
		return nil, docstore.NewOpError("query", typeName, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, docstore.NewOpError("query", typeName, err)
		}
		doc, err := docstore.Decode([]byte(body))
		if err != nil {
			return nil, docstore.NewOpError("query", typeName, err)
		}
		if docstore.Matches(doc, filter) {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, docstore.NewOpError("query", typeName, err)
	}
	return docs, nil
}

func (s *Store) Replace(ctx context.Context, doc docstore.Document) error {
	id := ident.Normalize(doc.ID())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docstore.NewOpError("replace", id, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT type FROM documents WHERE id = ?`, id).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.NewOpError("replace", id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.NewOpError("replace", id, err)
	}
	if existing != doc.Type() {
		return docstore.NewOpError("replace", id, &docstore.ValidationError{
			Class: doc.Type(), Field: docstore.TypeField, Message: "cannot change class of " + existing,
		})
	}

	desc, err := lookupClass(ctx, tx, existing)
	if err != nil {
		return docstore.NewOpError("replace", id, err)
	}
	prepared, err := docstore.PrepareReplace(desc, doc)
	if err != nil {
		return docstore.NewOpError("replace", id, err)
	}
	body, err := docstore.Encode(prepared)
	if err != nil {
		return docstore.NewOpError("replace", id, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE id = ?`, string(body), id); err != nil {
		return docstore.NewOpError("replace", id, err)
	}
	if err := tx.Commit(); err != nil {
		return docstore.NewOpError("replace", id, fmt.Errorf("commit: %w", err))
	}
	return nil
}
