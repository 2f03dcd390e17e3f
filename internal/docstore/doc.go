// Package docstore defines the document-store primitives the memory core is
// built on, plus the pieces every backend shares.
//
// A Store exposes exactly five data operations:
//   - DeclareClass / DeclaredClasses: schema declaration
//   - Insert: store a new document, returning its assigned id
//   - Get: fetch one document by id
//   - Query: fetch every document of a class matching field filters
//   - Replace: overwrite a document wholesale
//
// # Identifiers
//
// Backends always return the short "<Class>/<opaque>" id form. Ids arriving
// from callers (Get, Replace, reference values) may be in either form and are
// normalized with ident.Normalize at the adapter boundary, so nothing above
// this package needs to care which shape it holds.
//
// # Documents
//
// Documents are JSON objects. Every backend stores the encoded bytes and
// decodes on read, so callers always see the same value shapes regardless of
// backend: strings, float64 numbers, []any sequences and map[string]any
// objects. References are objects of the form {"@id": "...", "@type": "@id"}.
//
// Query results carry no ordering guarantee.
package docstore
