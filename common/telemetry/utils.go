package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
)

// GetTraceparentTraceAndSpan returns a trace and span from a W3C traceparent
func GetTraceparentTraceAndSpan(traceparent string) (string, string) {
	return traceparent[3:35], traceparent[36:52]
}

// TraceIDFromTraceparent parses the trace id of a W3C traceparent.
func TraceIDFromTraceparent(traceparent string) (trace.TraceID, error) {
	if len(traceparent) < 55 {
		return trace.TraceID{}, fmt.Errorf("traceparent %q is too short", traceparent)
	}
	traceID, err := trace.TraceIDFromHex(traceparent[3:35])
	if err != nil {
		return trace.TraceID{}, fmt.Errorf("trace id from hex: %w", err)
	}
	return traceID, nil
}
