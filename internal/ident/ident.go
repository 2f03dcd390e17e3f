// Package ident canonicalizes document identifiers.
//
// A backing store may hand out an identifier in two textual shapes:
//
//	opsmem:///data/Learning/0192f3c1-...   (fully-qualified)
//	Learning/0192f3c1-...                  (short form)
//
// The short form is canonical. Everything after the last "/data/" marker is
// kept; ids without the marker are already short and pass through unchanged.
//
// All functions are pure string slicing.
package ident

import "strings"

const (
	// Marker separates the store-specific prefix from the "<Class>/<opaque>" suffix.
	Marker = "/data/"

	// Prefix is the fully-qualified form produced by Qualify.
	Prefix = "opsmem://" + Marker
)

// Normalize returns the short "<Class>/<opaque>" form of id.
// Empty input yields the empty string.
func Normalize(id string) string {
	if i := strings.LastIndex(id, Marker); i >= 0 {
		return id[i+len(Marker):]
	}
	return id
}

// Match reports whether two ids refer to the same document.
// Two empty ids match each other and nothing else.
func Match(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Qualify returns the fully-qualified form of id.
func Qualify(id string) string {
	short := Normalize(id)
	if short == "" {
		return ""
	}
	return Prefix + short
}

// Class returns the class segment of id ("Learning" for "Learning/abc").
// Returns "" when id has no class segment.
func Class(id string) string {
	short := Normalize(id)
	if i := strings.IndexByte(short, '/'); i > 0 {
		return short[:i]
	}
	return ""
}
