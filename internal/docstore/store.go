package docstore

import "context"

// Store is the backing document store.
//
// Write primitives (DeclareClass, Insert, Replace) report every fault.
// Read primitives return ErrNotFound (wrapped) for a missing document and an
// empty slice, never nil, for a query with no matches.
type Store interface {
	// DeclareClass registers a class. Returns ErrClassExists if the class is
	// already declared and replace is false; with replace the descriptor is
	// overwritten.
	DeclareClass(ctx context.Context, class ClassDescriptor, replace bool) error

	// DeclaredClasses lists the names of all declared classes.
	DeclaredClasses(ctx context.Context) ([]string, error)

	// Insert validates doc against its class and stores it, returning the
	// assigned short-form id. Any @id on doc is ignored.
	Insert(ctx context.Context, doc Document) (string, error)

	// Get fetches a document by id (either form).
	Get(ctx context.Context, id string) (Document, error)

	// Query returns all documents of typeName matching filter, unordered.
	Query(ctx context.Context, typeName string, filter Filter) ([]Document, error)

	// Replace overwrites an existing document. doc must carry its @id.
	Replace(ctx context.Context, doc Document) error

	// Close releases backend resources.
	Close() error
}
