package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := p.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInit_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: ExporterStdout}, &buf)
	require.NoError(t, err)

	_, span := p.Tracer.Start(context.Background(), "docstore.insert")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// Shutdown flushes the batcher
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "docstore.insert")
	assert.Contains(t, buf.String(), "opsmem")
}

func TestInit_NoneExporter(t *testing.T) {
	p, err := Init(context.Background(), Config{Enabled: true, Exporter: ExporterNone}, nil)
	require.NoError(t, err)

	_, span := p.Tracer.Start(context.Background(), "discarded")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true, Exporter: "otlp-grpc"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "otlp-grpc")
}
