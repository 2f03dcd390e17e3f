package docstore

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/ident"
)

// Scalar field types. Any other type name is a reference to that class.
const (
	TypeString   = "xsd:string"
	TypeDateTime = "xsd:dateTime"
	TypeDecimal  = "xsd:decimal"
	TypeInteger  = "xsd:integer"
)

// Cardinality says how many values a field holds.
type Cardinality string

const (
	Required Cardinality = "required"
	Optional Cardinality = "optional"
	Set      Cardinality = "set"
)

// KeyStrategy decides how a class's document ids are assigned.
type KeyStrategy string

const (
	// KeyRandom assigns an opaque generated id.
	KeyRandom KeyStrategy = "random"

	// KeyLexical derives the id from the values of KeyFields, making them unique.
	KeyLexical KeyStrategy = "lexical"
)

// FieldSpec declares one field of a class.
type FieldSpec struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Cardinality Cardinality `json:"cardinality"`
}

// IsReference reports whether the field holds a reference to another class.
func (f FieldSpec) IsReference() bool {
	switch f.Type {
	case TypeString, TypeDateTime, TypeDecimal, TypeInteger:
		return false
	}
	return true
}

// ClassDescriptor declares a document class.
type ClassDescriptor struct {
	Name      string      `json:"name"`
	Key       KeyStrategy `json:"key"`
	KeyFields []string    `json:"key_fields,omitempty"`
	Fields    []FieldSpec `json:"fields"`
}

// Field looks up a field by name.
func (c ClassDescriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Check verifies the descriptor itself is well formed.
func (c ClassDescriptor) Check() error {
	if c.Name == "" {
		return fmt.Errorf("class name is required")
	}
	if strings.ContainsAny(c.Name, "/@") {
		return fmt.Errorf("class %s: name must not contain '/' or '@'", c.Name)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" || strings.HasPrefix(f.Name, "@") {
			return fmt.Errorf("class %s: invalid field name %q", c.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("class %s: duplicate field %q", c.Name, f.Name)
		}
		seen[f.Name] = true
		switch f.Cardinality {
		case Required, Optional, Set:
		default:
			return fmt.Errorf("class %s: field %q: invalid cardinality %q", c.Name, f.Name, f.Cardinality)
		}
		if f.Type == "" {
			return fmt.Errorf("class %s: field %q: type is required", c.Name, f.Name)
		}
	}
	switch c.Key {
	case KeyRandom:
		if len(c.KeyFields) > 0 {
			return fmt.Errorf("class %s: random key takes no key fields", c.Name)
		}
	case KeyLexical:
		if len(c.KeyFields) == 0 {
			return fmt.Errorf("class %s: lexical key needs key fields", c.Name)
		}
		for _, k := range c.KeyFields {
			f, ok := c.Field(k)
			if !ok || f.Type != TypeString || f.Cardinality != Required {
				return fmt.Errorf("class %s: key field %q must be a required xsd:string", c.Name, k)
			}
		}
	default:
		return fmt.Errorf("class %s: invalid key strategy %q", c.Name, c.Key)
	}
	return nil
}

// Validate checks a canonical (decoded) document against the class and
// normalizes its reference values in place.
func (c ClassDescriptor) Validate(doc Document) error {
	if doc.Type() != c.Name {
		return &ValidationError{Class: c.Name, Field: TypeField, Message: fmt.Sprintf("got type %q", doc.Type())}
	}
	for k := range doc {
		if k == TypeField || k == IDField {
			continue
		}
		if _, ok := c.Field(k); !ok {
			return &ValidationError{Class: c.Name, Field: k, Message: "not declared"}
		}
	}
	for _, f := range c.Fields {
		v, present := doc[f.Name]
		if present && v == nil {
			return &ValidationError{Class: c.Name, Field: f.Name, Message: "null is not allowed; omit the field"}
		}
		switch f.Cardinality {
		case Required:
			if !present {
				return &ValidationError{Class: c.Name, Field: f.Name, Message: "required"}
			}
			nv, err := c.checkValue(f, v)
			if err != nil {
				return err
			}
			doc[f.Name] = nv
		case Optional:
			if !present {
				continue
			}
			nv, err := c.checkValue(f, v)
			if err != nil {
				return err
			}
			doc[f.Name] = nv
		case Set:
			if !present {
				continue
			}
			seq, ok := v.([]any)
			if !ok {
				return &ValidationError{Class: c.Name, Field: f.Name, Message: "set must be a sequence"}
			}
			for i, elem := range seq {
				nv, err := c.checkValue(f, elem)
				if err != nil {
					return err
				}
				seq[i] = nv
			}
		}
	}
	return nil
}

func (c ClassDescriptor) checkValue(f FieldSpec, v any) (any, error) {
	bad := func(msg string) error {
		return &ValidationError{Class: c.Name, Field: f.Name, Message: msg}
	}
	switch f.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return nil, bad("expected string")
		}
	case TypeDateTime:
		s, ok := v.(string)
		if !ok {
			return nil, bad("expected ISO-8601 string")
		}
		if _, err := chrono.Parse(s); err != nil {
			return nil, bad(err.Error())
		}
	case TypeDecimal:
		if _, ok := v.(float64); !ok {
			return nil, bad("expected number")
		}
	case TypeInteger:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return nil, bad("expected integer")
		}
	default:
		id := RefID(v)
		if id == "" {
			return nil, bad("expected reference to " + f.Type)
		}
		if m, ok := v.(map[string]any); ok {
			if t, _ := m[TypeField].(string); t != "" && t != RefMarker {
				return nil, bad("reference marker must be @id")
			}
		}
		return map[string]any{IDField: ident.Normalize(id), TypeField: RefMarker}, nil
	}
	return v, nil
}

// keyFor computes the id of a document of this class.
func (c ClassDescriptor) keyFor(doc Document, gen IDGenerator) string {
	if c.Key != KeyLexical {
		return c.Name + "/" + gen.Generate()
	}
	parts := make([]string, len(c.KeyFields))
	for i, k := range c.KeyFields {
		s, _ := doc[k].(string)
		parts[i] = url.PathEscape(s)
	}
	return c.Name + "/" + strings.Join(parts, "+")
}

// Prepare validates a document for insertion and assigns its id. The returned
// document is a canonical copy; the input is not modified.
func Prepare(c ClassDescriptor, doc Document, gen IDGenerator) (Document, error) {
	out, err := canonical(doc)
	if err != nil {
		return nil, err
	}
	delete(out, IDField)
	if err := c.Validate(out); err != nil {
		return nil, err
	}
	out[IDField] = c.keyFor(out, gen)
	return out, nil
}

// PrepareReplace validates a replacement document. Its id is normalized and,
// for lexical classes, must still agree with the key fields.
func PrepareReplace(c ClassDescriptor, doc Document) (Document, error) {
	out, err := canonical(doc)
	if err != nil {
		return nil, err
	}
	id := ident.Normalize(out.ID())
	if id == "" {
		return nil, &ValidationError{Class: c.Name, Field: IDField, Message: "required for replace"}
	}
	out[IDField] = id
	if err := c.Validate(out); err != nil {
		return nil, err
	}
	if c.Key == KeyLexical && c.keyFor(out, nil) != id {
		return nil, &ValidationError{Class: c.Name, Field: IDField, Message: "key fields do not match id"}
	}
	return out, nil
}
