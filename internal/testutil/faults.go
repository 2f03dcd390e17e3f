package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/ident"
)

// ErrInjected is the default fault returned by FaultStore rules.
var ErrInjected = errors.New("injected fault")

// Store primitive names used by FaultStore rules.
const (
	OpDeclare = "declare"
	OpClasses = "classes"
	OpInsert  = "insert"
	OpGet     = "get"
	OpQuery   = "query"
	OpReplace = "replace"
)

type faultRule struct {
	op    string
	class string // "" matches any class
	nth   int    // 0 fails every matching call
	err   error
	seen  int
}

// FaultStore wraps a docstore.Store and fails selected calls.
//
// Rules are keyed by primitive and class. For Get the class is taken from the
// requested id; for DeclaredClasses it is always "".
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FaultStore struct {
	next docstore.Store

	mu    sync.Mutex
	rules []*faultRule
	calls map[string]int
}

// Compile-time interface check.
var _ docstore.Store = (*FaultStore)(nil)

// NewFaultStore wraps next with no rules installed.
func NewFaultStore(next docstore.Store) *FaultStore {
	return &FaultStore{next: next, calls: make(map[string]int)}
}

// FailNth makes the nth (1-based) call of op on class fail with err.
// A nil err uses ErrInjected.
func (f *FaultStore) FailNth(op, class string, nth int, err error) {
	f.add(&faultRule{op: op, class: class, nth: nth, err: err})
}

// FailAll makes every call of op on class fail with err. An empty class
// matches every class.
func (f *FaultStore) FailAll(op, class string, err error) {
	f.add(&faultRule{op: op, class: class, err: err})
}

// Reset removes all rules and call counts.
func (f *FaultStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	f.calls = make(map[string]int)
}

// Calls returns how many times op was invoked on class.
func (f *FaultStore) Calls(op, class string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+" "+class]
}

func (f *FaultStore) add(r *faultRule) {
	if r.err == nil {
		r.err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, r)
}

// check records a call and returns the injected fault, if any.
func (f *FaultStore) check(op, class string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op+" "+class]++
	for _, r := range f.rules {
		if r.op != op || (r.class != "" && r.class != class) {
			continue
		}
		r.seen++
		if r.nth == 0 || r.nth == r.seen {
			return docstore.NewOpError(op, class, r.err)
		}
	}
	return nil
}

func (f *FaultStore) DeclareClass(ctx context.Context, class docstore.ClassDescriptor, replace bool) error {
	if err := f.check(OpDeclare, class.Name); err != nil {
		return err
	}
	return f.next.DeclareClass(ctx, class, replace)
}

func (f *FaultStore) DeclaredClasses(ctx context.Context) ([]string, error) {
	if err := f.check(OpClasses, ""); err != nil {
		return nil, err
	}
	return f.next.DeclaredClasses(ctx)
}

func (f *FaultStore) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	if err := f.check(OpInsert, doc.Type()); err != nil {
		return "", err
	}
	return f.next.Insert(ctx, doc)
}

func (f *FaultStore) Get(ctx context.Context, id string) (docstore.Document, error) {
	if err := f.check(OpGet, ident.Class(id)); err != nil {
		return nil, err
	}
	return f.next.Get(ctx, id)
}

func (f *FaultStore) Query(ctx context.Context, typeName string, filter docstore.Filter) ([]docstore.Document, error) {
	if err := f.check(OpQuery, typeName); err != nil {
		return nil, err
	}
	return f.next.Query(ctx, typeName, filter)
}

func (f *FaultStore) Replace(ctx context.Context, doc docstore.Document) error {
	if err := f.check(OpReplace, doc.Type()); err != nil {
		return err
	}
	return f.next.Replace(ctx, doc)
}

func (f *FaultStore) Close() error {
	return f.next.Close()
}
