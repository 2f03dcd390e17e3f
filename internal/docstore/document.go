package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/roach88/opsmemory/internal/ident"
)

// Reserved document keys.
const (
	TypeField = "@type"
	IDField   = "@id"

	// RefMarker is the @type value carried by reference objects.
	RefMarker = "@id"
)

// Document is a single stored record.
type Document map[string]any

// Type returns the class discriminator.
func (d Document) Type() string {
	s, _ := d[TypeField].(string)
	return s
}

// ID returns the document id, or "" before insertion.
func (d Document) ID() string {
	s, _ := d[IDField].(string)
	return s
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Ref is a typed reference to another document.
type Ref struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
}

// NewRef builds a reference value for id.
func NewRef(id string) Ref {
	return Ref{ID: ident.Normalize(id), Type: RefMarker}
}

// RefID extracts the referenced id from a reference value. It accepts a Ref,
// a decoded {"@id": ...} object or a bare string. Returns "" for anything else.
func RefID(v any) string {
	switch r := v.(type) {
	case Ref:
		return r.ID
	case *Ref:
		if r == nil {
			return ""
		}
		return r.ID
	case map[string]any:
		s, _ := r[IDField].(string)
		return s
	case string:
		return r
	default:
		return ""
	}
}

// Filter restricts a Query to documents whose fields equal the given values.
// A filter value matches a set field when the set contains it.
type Filter map[string]any

// Encode renders a document as JSON without HTML escaping.
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses JSON produced by Encode.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode document: not an object")
	}
	return doc, nil
}

// canonical round-trips doc through JSON so that Go-typed values (Ref,
// []string, int) take the same shape a read would produce.
func canonical(doc Document) (Document, error) {
	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func canonicalFilter(f Filter) (map[string]any, error) {
	if len(f) == 0 {
		return nil, nil
	}
	doc, err := canonical(Document(f))
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return doc, nil
}

// Matches reports whether doc satisfies every entry of f.
func Matches(doc Document, f Filter) bool {
	cf, err := canonicalFilter(f)
	if err != nil {
		return false
	}
	return matchCanonical(doc, cf)
}

func matchCanonical(doc Document, cf map[string]any) bool {
	for k, want := range cf {
		if !valueMatches(doc[k], want) {
			return false
		}
	}
	return true
}

func valueMatches(have, want any) bool {
	if _, ok := want.(map[string]any); ok {
		if _, isRef := have.(map[string]any); isRef {
			return ident.Match(RefID(have), RefID(want))
		}
	}
	if seq, ok := have.([]any); ok {
		if _, wantSeq := want.([]any); !wantSeq {
			for _, elem := range seq {
				if valueMatches(elem, want) {
					return true
				}
			}
			return false
		}
	}
	return reflect.DeepEqual(have, want)
}
