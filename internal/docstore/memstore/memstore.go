// Package memstore provides an in-memory docstore.Store for tests and
// ephemeral use. Documents are held as encoded JSON so reads decode exactly as
// they would from a persistent backend.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/ident"
)

// Compile-time contract assertion.
var _ docstore.Store = (*Store)(nil)

type record struct {
	class string
	body  []byte
}

// Store is a mutex-guarded in-memory document store.
type Store struct {
	mu      sync.Mutex
	gen     docstore.IDGenerator
	classes map[string]docstore.ClassDescriptor
	docs    map[string]record
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the UUIDv7 id generator.
func WithIDGenerator(gen docstore.IDGenerator) Option {
	return func(s *Store) { s.gen = gen }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		gen:     docstore.UUIDv7Generator{},
		classes: make(map[string]docstore.ClassDescriptor),
		docs:    make(map[string]record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) DeclareClass(_ context.Context, class docstore.ClassDescriptor, replace bool) error {
	if err := class.Check(); err != nil {
		return docstore.NewOpError("declare", class.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.NewOpError("declare", class.Name, docstore.ErrClosed)
	}
	if _, exists := s.classes[class.Name]; exists && !replace {
		return docstore.NewOpError("declare", class.Name, docstore.ErrClassExists)
	}
	s.classes[class.Name] = class
	return nil
}

func (s *Store) DeclaredClasses(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.NewOpError("classes", "", docstore.ErrClosed)
	}
	names := make([]string, 0, len(s.classes))
	for name := range s.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Insert(_ context.Context, doc docstore.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	class := doc.Type()
	if s.closed {
		return "", docstore.NewOpError("insert", class, docstore.ErrClosed)
	}
	desc, ok := s.classes[class]
	if !ok {
		return "", docstore.NewOpError("insert", class, docstore.ErrUnknownClass)
	}
	prepared, err := docstore.Prepare(desc, doc, s.gen)
	if err != nil {
		return "", docstore.NewOpError("insert", class, err)
	}
	id := prepared.ID()
	if _, exists := s.docs[id]; exists {
		return "", docstore.NewOpError("insert", id, docstore.ErrDuplicateKey)
	}
	body, err := docstore.Encode(prepared)
	if err != nil {
		return "", docstore.NewOpError("insert", id, err)
	}
	s.docs[id] = record{class: class, body: body}
	return id, nil
}

func (s *Store) Get(_ context.Context, id string) (docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.NewOpError("get", id, docstore.ErrClosed)
	}
	rec, ok := s.docs[ident.Normalize(id)]
	if !ok {
		return nil, docstore.NewOpError("get", id, docstore.ErrNotFound)
	}
	doc, err := docstore.Decode(rec.body)
	if err != nil {
		return nil, docstore.NewOpError("get", id, err)
	}
	return doc, nil
}

// Query scans every stored document; map iteration order is deliberately
// left random.
func (s *Store) Query(_ context.Context, typeName string, filter docstore.Filter) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.NewOpError("query", typeName, docstore.ErrClosed)
	}
	docs := []docstore.Document{}
	for _, rec := range s.docs {
		if rec.class != typeName {
			continue
		}
		doc, err := docstore.Decode(rec.body)
		if err != nil {
			return nil, docstore.NewOpError("query", typeName, err)
		}
		if docstore.Matches(doc, filter) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *Store) Replace(_ context.Context, doc docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ident.Normalize(doc.ID())
	if s.closed {
		return docstore.NewOpError("replace", id, docstore.ErrClosed)
	}
	existing, ok := s.docs[id]
	if !ok {
		return docstore.NewOpError("replace", id, docstore.ErrNotFound)
	}
	desc, ok := s.classes[doc.Type()]
	if !ok {
		return docstore.NewOpError("replace", id, docstore.ErrUnknownClass)
	}
	if existing.class != desc.Name {
		return docstore.NewOpError("replace", id, &docstore.ValidationError{
			Class: desc.Name, Field: docstore.TypeField, Message: "cannot change class of " + existing.class,
		})
	}
	prepared, err := docstore.PrepareReplace(desc, doc)
	if err != nil {
		return docstore.NewOpError("replace", id, err)
	}
	body, err := docstore.Encode(prepared)
	if err != nil {
		return docstore.NewOpError("replace", id, err)
	}
	s.docs[id] = record{class: desc.Name, body: body}
	return nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
