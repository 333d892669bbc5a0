// Package tracer follows a partition log and renders its records for people.
package tracer

import (
	"context"
	"fmt"

	"github.com/rtenhove/zeebe/common/telemetry"
	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/vars"
)

// Entry is the readable form of a record. Payload documents are decoded.
type Entry struct {
	Position        int64          `json:"position"`
	SourcePosition  int64          `json:"sourcePosition"`
	Key             int64          `json:"key"`
	RecordType      string         `json:"recordType"`
	ValueType       string         `json:"valueType"`
	Intent          string         `json:"intent"`
	RejectionType   string         `json:"rejectionType,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	Value           model.Value    `json:"value"`
	Payload         map[string]any `json:"payload,omitempty"`
	TraceID         string         `json:"traceId,omitempty"`
	SpanID          string         `json:"spanId,omitempty"`
}

// Filter selects the records a trace reports.
type Filter struct {
	// WorkflowInstanceKey limits the trace to the records of one instance when set.
	WorkflowInstanceKey int64
}

// Trace consumes the stream from its first record and calls fn for every record passing the filter.
// It returns when ctx ends or fn fails.
func Trace(ctx context.Context, stream logstream.Stream, filter Filter, fn func(e *Entry) error) error {
	return stream.Consume(ctx, func(ctx context.Context, rec *model.Record) error {
		if filter.WorkflowInstanceKey > 0 && instanceOf(rec) != filter.WorkflowInstanceKey {
			return nil
		}
		e, err := NewEntry(ctx, rec)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

// NewEntry renders a record.
func NewEntry(ctx context.Context, rec *model.Record) (*Entry, error) {
	e := &Entry{
		Position:       rec.Position,
		SourcePosition: rec.SourcePosition,
		Key:            rec.Key,
		RecordType:     rec.RecordType.String(),
		ValueType:      rec.ValueType.String(),
		Intent:         rec.IntentName(),
		Value:          rec.Value,
	}
	if rec.RecordType == model.RecordTypeCommandRejection {
		e.RejectionType = rec.Metadata.RejectionType.String()
		e.RejectionReason = rec.Metadata.RejectionReason
	}
	if tp := rec.Metadata.Trace["traceparent"]; tp != "" {
		if _, err := telemetry.TraceIDFromTraceparent(tp); err == nil {
			e.TraceID, e.SpanID = telemetry.GetTraceparentTraceAndSpan(tp)
		}
	}
	if doc := payloadOf(rec); len(doc) > 0 {
		p, err := vars.Decode(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("decode payload of record %d: %w", rec.Position, err)
		}
		e.Payload = p
	}
	return e, nil
}

func payloadOf(rec *model.Record) []byte {
	switch v := rec.Value.(type) {
	case *model.WorkflowInstanceRecord:
		return v.Payload
	case *model.JobRecord:
		return v.Payload
	case *model.IncidentRecord:
		return v.Payload
	default:
		return nil
	}
}

func instanceOf(rec *model.Record) int64 {
	switch v := rec.Value.(type) {
	case *model.WorkflowInstanceRecord:
		return v.WorkflowInstanceKey
	case *model.JobRecord:
		return v.Headers.WorkflowInstanceKey
	case *model.IncidentRecord:
		return v.WorkflowInstanceKey
	default:
		return model.NoKey
	}
}
