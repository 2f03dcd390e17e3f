package docstore

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
var (
	AttrClass   = attribute.Key("opsmem.class")
	AttrDocID   = attribute.Key("opsmem.doc.id")
	AttrResults = attribute.Key("opsmem.query.results")
)

type tracedStore struct {
	next   Store
	tracer trace.Tracer
}

// Traced wraps a store so that every primitive runs inside a client span.
// Not-found results are not recorded as span errors.
func Traced(next Store, tracer trace.Tracer) Store {
	return &tracedStore{next: next, tracer: tracer}
}

func (s *tracedStore) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func finish(span trace.Span, err error) {
	if err != nil && !IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *tracedStore) DeclareClass(ctx context.Context, class ClassDescriptor, replace bool) (err error) {
	ctx, span := s.start(ctx, "docstore.declare", AttrClass.String(class.Name), attribute.Bool("opsmem.replace", replace))
	defer func() { finish(span, err) }()
	return s.next.DeclareClass(ctx, class, replace)
}

func (s *tracedStore) DeclaredClasses(ctx context.Context) (names []string, err error) {
	ctx, span := s.start(ctx, "docstore.classes")
	defer func() { finish(span, err) }()
	return s.next.DeclaredClasses(ctx)
}

func (s *tracedStore) Insert(ctx context.Context, doc Document) (id string, err error) {
	ctx, span := s.start(ctx, "docstore.insert", AttrClass.String(doc.Type()))
	defer func() {
		span.SetAttributes(AttrDocID.String(id))
		finish(span, err)
	}()
	return s.next.Insert(ctx, doc)
}

func (s *tracedStore) Get(ctx context.Context, id string) (doc Document, err error) {
	ctx, span := s.start(ctx, "docstore.get", AttrDocID.String(id))
	defer func() { finish(span, err) }()
	return s.next.Get(ctx, id)
}

func (s *tracedStore) Query(ctx context.Context, typeName string, filter Filter) (docs []Document, err error) {
	ctx, span := s.start(ctx, "docstore.query", AttrClass.String(typeName))
	defer func() {
		span.SetAttributes(AttrResults.Int(len(docs)))
		finish(span, err)
	}()
	return s.next.Query(ctx, typeName, filter)
}

func (s *tracedStore) Replace(ctx context.Context, doc Document) (err error) {
	ctx, span := s.start(ctx, "docstore.replace", AttrClass.String(doc.Type()), AttrDocID.String(doc.ID()))
	defer func() { finish(span, err) }()
	return s.next.Replace(ctx, doc)
}

func (s *tracedStore) Close() error {
	return s.next.Close()
}
