// Package schema declares the fixed set of entity and relationship classes
// against a docstore.Store and verifies what the store has declared.
//
// The class definitions live in classes.cue, compiled once with the CUE Go
// API. CUE enforces the definition constraints (field name shape,
// cardinality and key strategy enums) and docstore.ClassDescriptor.Check
// covers the rest.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/opsmemory/internal/docstore"
)

//go:embed classes.cue
var classesCUE []byte

// Version identifies the class set declared by this package.
const Version = "phase1-v0.1.0"

// EntityClassNames are the four entity classes. Their presence is what
// Declare takes to mean the schema is already installed.
var EntityClassNames = []string{"Session", "Event", "Learning", "Decision"}

// RelationshipClassNames are the five edge classes.
var RelationshipClassNames = []string{
	"SessionProducedLearning",
	"SessionProducedDecision",
	"LearningDerivedFromEvent",
	"DecisionLedToEvent",
	"SessionFollowed",
}

// ExpectedClassNames is every class name in declaration order.
func ExpectedClassNames() []string {
	names := make([]string, 0, len(EntityClassNames)+len(RelationshipClassNames))
	names = append(names, EntityClassNames...)
	return append(names, RelationshipClassNames...)
}

var (
	loadOnce sync.Once
	loaded   []docstore.ClassDescriptor
	loadErr  error
)

// Classes returns the class descriptors in declaration order: entities first,
// then relationships. The returned slice is a fresh copy.
func Classes() ([]docstore.ClassDescriptor, error) {
	loadOnce.Do(func() {
		loaded, loadErr = compile(classesCUE)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]docstore.ClassDescriptor, len(loaded))
	copy(out, loaded)
	return out, nil
}

// compile evaluates the CUE source and decodes its class list.
func compile(src []byte) ([]docstore.ClassDescriptor, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("classes.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	version, err := v.LookupPath(cue.ParsePath("version")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if version != Version {
		return nil, fmt.Errorf("classes.cue: version %q, want %q", version, Version)
	}

	var classes []docstore.ClassDescriptor
	if err := v.LookupPath(cue.ParsePath("classes")).Decode(&classes); err != nil {
		return nil, formatCUEError(err)
	}
	for _, c := range classes {
		if err := c.Check(); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

// DefinitionError reports a problem in the CUE class definitions.
type DefinitionError struct {
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &DefinitionError{Message: first.Error(), Pos: positions[0]}
	}
	return err
}
