package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// EndpointConsole writes spans to stdout.
	EndpointConsole = "console"
)

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(ctx context.Context) error

// SetUp installs the global tracer provider for the given endpoint.
// An empty endpoint disables tracing, "console" pretty prints spans to stdout, anything else is an OTLP/HTTP endpoint.
func SetUp(ctx context.Context, endpoint string, resourceName string) (ShutdownFunc, error) {
	switch endpoint {
	case "":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	case EndpointConsole:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdouttrace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
		)
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	default:
		tp, err := SetUpHTTP(ctx, endpoint, resourceName)
		if err != nil {
			return nil, err
		}
		return tp.Shutdown, nil
	}
}

// SetUpHTTP installs a tracer provider exporting spans to an OTLP/HTTP endpoint.
func SetUpHTTP(ctx context.Context, spanOtlURI string, resourceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(resourceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(spanOtlURI))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	// Batch spans before export.
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter)),
	)
	otel.SetTracerProvider(tracerProvider)
	return tracerProvider, nil
}
