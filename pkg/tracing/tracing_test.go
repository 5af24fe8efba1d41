package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/cjrt007/Tornado.Ai/pkg/tracing"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	p, err := tracing.Setup(context.Background(), tracing.Options{})
	require.NoError(t, err)

	_, span := p.Tracer(tracing.ScopeAPI).Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	p := tracing.NewWithSDK(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, ok := p.Tracer(tracing.ScopeClient).Start(context.Background(), "ok")
	tracing.RecordError(ok, nil)
	ok.End()

	_, bad := p.Tracer(tracing.ScopeClient).Start(context.Background(), "bad")
	tracing.RecordError(bad, errors.New("boom"))
	bad.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestOrNoop(t *testing.T) {
	t.Parallel()

	tr := tracing.OrNoop(nil)
	_, span := tr.Start(context.Background(), "x")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
}
