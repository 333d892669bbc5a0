package tracer

import (
	"context"
	"testing"

	"github.com/rtenhove/zeebe/model"
	"github.com/rtenhove/zeebe/server/services/logstream"
	"github.com/rtenhove/zeebe/server/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(t *testing.T, workflowInstanceKey int64, intent model.Intent, payload map[string]any) *model.Record {
	t.Helper()
	doc, err := vars.Encode(context.Background(), payload)
	require.NoError(t, err)
	return &model.Record{
		SourcePosition: -1,
		Key:            workflowInstanceKey,
		RecordType:     model.RecordTypeEvent,
		ValueType:      model.ValueTypeWorkflowInstance,
		Intent:         intent,
		Metadata:       model.NewMetadata(),
		Value:          &model.WorkflowInstanceRecord{WorkflowInstanceKey: workflowInstanceKey, Payload: doc},
	}
}

func TestTraceFiltersByInstanceAndDecodesPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logstream.NewMemory(1)
	_, err := log.Append(ctx, []*model.Record{
		event(t, 10, model.WorkflowInstanceCreated, map[string]any{"a": "x"}),
		event(t, 11, model.WorkflowInstanceCreated, map[string]any{}),
		event(t, 10, model.WorkflowInstanceCompleted, map[string]any{"a": "y"}),
	})
	require.NoError(t, err)

	var got []*Entry
	err = Trace(ctx, log, Filter{WorkflowInstanceKey: 10}, func(e *Entry) error {
		got = append(got, e)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATED", got[0].Intent)
	assert.Equal(t, "COMPLETED", got[1].Intent)
	assert.Equal(t, "y", got[1].Payload["a"])
	assert.Equal(t, "EVENT", got[1].RecordType)
}

func TestNewEntryOfRejection(t *testing.T) {
	rec := event(t, 10, model.WorkflowInstanceCancel, map[string]any{})
	rec.RecordType = model.RecordTypeCommandRejection
	rec.Metadata.RejectionType = model.RejectionNotApplicable
	rec.Metadata.RejectionReason = "Workflow instance is not running"
	e, err := NewEntry(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "Workflow instance is not running", e.RejectionReason)
	assert.Equal(t, model.RejectionNotApplicable.String(), e.RejectionType)
	assert.Empty(t, e.Payload)
	assert.Empty(t, e.TraceID)
}

func TestNewEntryCarriesTrace(t *testing.T) {
	rec := event(t, 10, model.WorkflowInstanceCreated, map[string]any{})
	rec.Metadata.Trace = map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}
	e, err := NewEntry(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", e.TraceID)
	assert.Equal(t, "00f067aa0ba902b7", e.SpanID)
}
