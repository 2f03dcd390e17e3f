package docstore

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped) by every backend.
var (
	ErrNotFound     = errors.New("document not found")
	ErrClassExists  = errors.New("class already declared")
	ErrUnknownClass = errors.New("class not declared")
	ErrDuplicateKey = errors.New("duplicate document key")
	ErrClosed       = errors.New("store closed")
)

// OpError records the primitive and key that failed.
type OpError struct {
	// Op is the primitive: "declare", "insert", "get", "query", "replace".
	Op string

	// Key is the class name or document id involved.
	Key string

	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// ValidationError reports a document that does not conform to its class.
type ValidationError struct {
	Class   string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s document: field %q: %s", e.Class, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s document: %s", e.Class, e.Message)
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClassExists reports whether err is a redeclaration of an existing class.
func IsClassExists(err error) bool {
	return errors.Is(err, ErrClassExists)
}

// IsValidation reports whether err is a schema validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewOpError wraps err with the operation and key it failed on.
func NewOpError(op, key string, err error) error {
	return &OpError{Op: op, Key: key, Err: err}
}
