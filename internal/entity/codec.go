package entity

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/ident"
)

// DecodeError reports a document that does not decode into its entity kind.
type DecodeError struct {
	Class string
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("decode %s.%s: %v", e.Class, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decoder reads typed fields out of a document, keeping the first error.
type decoder struct {
	doc   docstore.Document
	class string
	err   error
}

func newDecoder(doc docstore.Document, class string) *decoder {
	d := &decoder{doc: doc, class: class}
	if doc == nil {
		d.err = &DecodeError{Class: class, Err: fmt.Errorf("nil document")}
	} else if doc.Type() != class {
		d.err = &DecodeError{Class: class, Field: docstore.TypeField, Err: fmt.Errorf("got %q", doc.Type())}
	}
	return d
}

func (d *decoder) fail(field string, err error) {
	if d.err == nil {
		d.err = &DecodeError{Class: d.class, Field: field, Err: err}
	}
}

func (d *decoder) id() string {
	return ident.Normalize(d.doc.ID())
}

func (d *decoder) str(field string) string {
	if d.err != nil {
		return ""
	}
	s, ok := d.doc[field].(string)
	if !ok {
		d.fail(field, fmt.Errorf("missing or not a string"))
	}
	return s
}

func (d *decoder) optStr(field string) *string {
	if d.err != nil {
		return nil
	}
	v, present := d.doc[field]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		d.fail(field, fmt.Errorf("not a string"))
		return nil
	}
	return &s
}

func (d *decoder) instant(field string) time.Time {
	s := d.str(field)
	if d.err != nil {
		return time.Time{}
	}
	t, err := chrono.Parse(s)
	if err != nil {
		d.fail(field, err)
	}
	return t
}

func (d *decoder) optInstant(field string) *time.Time {
	s := d.optStr(field)
	if s == nil || d.err != nil {
		return nil
	}
	t, err := chrono.Parse(*s)
	if err != nil {
		d.fail(field, err)
		return nil
	}
	return &t
}

func (d *decoder) number(field string) float64 {
	if d.err != nil {
		return 0
	}
	switch n := d.doc[field].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	d.fail(field, fmt.Errorf("missing or not a number"))
	return 0
}

func (d *decoder) optInt(field string) *int {
	if d.err != nil {
		return nil
	}
	v, present := d.doc[field]
	if !present || v == nil {
		return nil
	}
	var n int
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			d.fail(field, fmt.Errorf("not an integer"))
			return nil
		}
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	default:
		d.fail(field, fmt.Errorf("not an integer"))
		return nil
	}
	return &n
}

func (d *decoder) set(field string) Set {
	if d.err != nil {
		return nil
	}
	v, present := d.doc[field]
	if !present || v == nil {
		return nil
	}
	var items []string
	switch seq := v.(type) {
	case []any:
		for _, elem := range seq {
			s, ok := elem.(string)
			if !ok {
				d.fail(field, fmt.Errorf("set member is not a string"))
				return nil
			}
			items = append(items, s)
		}
	case []string:
		items = seq
	case Set:
		items = seq
	default:
		d.fail(field, fmt.Errorf("not a sequence"))
		return nil
	}
	return NewSet(items...)
}

func (d *decoder) ref(field string) string {
	if d.err != nil {
		return ""
	}
	id := docstore.RefID(d.doc[field])
	if id == "" {
		d.fail(field, fmt.Errorf("missing reference"))
	}
	return ident.Normalize(id)
}

func (d *decoder) optRef(field string) string {
	if d.err != nil {
		return ""
	}
	v, present := d.doc[field]
	if !present || v == nil {
		return ""
	}
	id := docstore.RefID(v)
	if id == "" {
		d.fail(field, fmt.Errorf("not a reference"))
	}
	return ident.Normalize(id)
}

// newDocument starts a document of class, carrying id when set.
func newDocument(class, id string) docstore.Document {
	doc := docstore.Document{docstore.TypeField: class}
	if id != "" {
		doc[docstore.IDField] = ident.Normalize(id)
	}
	return doc
}

func putOptString(doc docstore.Document, field string, v *string) {
	if v != nil {
		doc[field] = *v
	}
}

func putOptTime(doc docstore.Document, field string, v *time.Time) {
	if v != nil {
		doc[field] = chrono.Format(*v)
	}
}

func putSet(doc docstore.Document, field string, s Set) {
	if len(s) > 0 {
		doc[field] = s.values()
	}
}
