package entity

import (
	"math"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Text returns s in Unicode NFC form.
func Text(s string) string {
	return norm.NFC.String(s)
}

// TextPtr returns a pointer to the NFC form of s.
func TextPtr(s string) *string {
	t := Text(s)
	return &t
}

// ClampConfidence confines c to [0, 1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// Set is an unordered collection of distinct strings. It is kept sorted so
// that equal sets compare equal; the empty set is nil.
type Set []string

// NewSet builds a Set from items. Members are NFC-normalized; empty strings
// and duplicates are dropped.
func NewSet(items ...string) Set {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	var out Set
	for _, item := range items {
		s := Text(item)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether s is a member.
func (s Set) Contains(item string) bool {
	i := sort.SearchStrings(s, item)
	return i < len(s) && s[i] == item
}

// Union returns the members of s and every other set.
func (s Set) Union(others ...Set) Set {
	all := append([]string{}, s...)
	for _, o := range others {
		all = append(all, o...)
	}
	return NewSet(all...)
}

// values renders the set for a document.
func (s Set) values() []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
