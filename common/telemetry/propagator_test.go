package telemetry

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func newSpan(t *testing.T) (context.Context, trace.SpanContext) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, sp := tp.Tracer("test").Start(context.Background(), "client-span")
	t.Cleanup(func() { sp.End() })
	return ctx, trace.SpanContextFromContext(ctx)
}

func TestNatsHeaderRoundTrip(t *testing.T) {
	ctx, sc := newSpan(t)
	msg := nats.NewMsg("test-subject")
	CtxToNatsMsg(ctx, msg)

	tp := msg.Header.Get("traceparent")
	require.NotEmpty(t, tp)
	traceID, spanID := GetTraceparentTraceAndSpan(tp)
	assert.Equal(t, sc.TraceID().String(), traceID)
	assert.Equal(t, sc.SpanID().String(), spanID)

	got := trace.SpanContextFromContext(NatsMsgToCtx(context.Background(), msg))
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
	assert.True(t, got.IsRemote())
}

func TestMetadataRoundTrip(t *testing.T) {
	ctx, sc := newSpan(t)
	tr := CtxToTrace(ctx)
	require.Contains(t, tr, "traceparent")

	id, err := TraceIDFromTraceparent(tr["traceparent"])
	require.NoError(t, err)
	assert.Equal(t, sc.TraceID(), id)

	got := trace.SpanContextFromContext(TraceToCtx(context.Background(), tr))
	assert.Equal(t, sc.TraceID(), got.TraceID())
}

func TestNoSpanCarriesNothing(t *testing.T) {
	assert.Nil(t, CtxToTrace(context.Background()))
	ctx := TraceToCtx(context.Background(), nil)
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())

	msg := nats.NewMsg("test-subject")
	ctx = NatsMsgToCtx(context.Background(), msg)
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
}

func TestTraceIDFromShortTraceparent(t *testing.T) {
	_, err := TraceIDFromTraceparent("00-abc")
	assert.Error(t, err)
}
