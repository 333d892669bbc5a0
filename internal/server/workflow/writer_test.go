package workflow

import (
	"testing"

	"github.com/rtenhove/zeebe/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceRecord() *model.Record {
	md := model.NewMetadata()
	md.RequestID = 4
	md.RequestStreamID = 2
	return &model.Record{
		Position:       8192,
		SourcePosition: 4096,
		Key:            model.NoKey,
		RecordType:     model.RecordTypeCommand,
		ValueType:      model.ValueTypeWorkflowInstance,
		Intent:         model.WorkflowInstanceCreate,
		Metadata:       md,
		Value:          &model.WorkflowInstanceRecord{BpmnProcessID: "order-process"},
	}
}

func TestStreamWriterKeys(t *testing.T) {
	src := sourceRecord()
	w := newStreamWriter(newKeyGenerator(1), src, map[string]string{"traceparent": "00-abc"})

	key := w.WriteNewEvent(model.WorkflowInstanceSequenceFlowTaken, &model.WorkflowInstanceRecord{})
	w.WriteFollowUpEvent(77, model.WorkflowInstanceActivityActivated, &model.WorkflowInstanceRecord{})
	w.WriteNewCommand(model.JobCreate, &model.JobRecord{Type: "payment-service"})
	w.WriteFollowUpCommand(99, model.JobCancel, &model.JobRecord{})

	require.Len(t, w.records, 4)
	assert.Equal(t, partitionKey(1), key)
	assert.Equal(t, []int64{key, 77, model.NoKey, 99}, []int64{w.records[0].Key, w.records[1].Key, w.records[2].Key, w.records[3].Key})
	assert.Equal(t, model.RecordTypeCommand, w.records[2].RecordType)
	assert.Equal(t, model.ValueTypeJob, w.records[2].ValueType)
	for _, r := range w.records {
		assert.Equal(t, src.Position, r.SourcePosition)
		assert.Equal(t, int64(-1), r.Position)
		assert.Equal(t, "00-abc", r.Metadata.Trace["traceparent"])
		assert.False(t, r.Metadata.HasRequest())
	}

	w.reset()
	assert.Empty(t, w.records)
}

func TestStreamWriterRejection(t *testing.T) {
	src := sourceRecord()
	w := newStreamWriter(newKeyGenerator(1), src, nil)

	w.WriteRejection(src, nil, model.RejectionBadValue, "Workflow is not deployed", withRequest(src))

	require.Len(t, w.records, 1)
	r := w.records[0]
	assert.Equal(t, model.RecordTypeCommandRejection, r.RecordType)
	assert.Equal(t, model.ValueTypeWorkflowInstance, r.ValueType)
	assert.Equal(t, model.WorkflowInstanceCreate, r.Intent)
	assert.Equal(t, src.Key, r.Key)
	assert.Same(t, src.Value, r.Value)
	assert.Equal(t, model.RejectionBadValue, r.Metadata.RejectionType)
	assert.Equal(t, "Workflow is not deployed", r.Metadata.RejectionReason)
	assert.Equal(t, int64(4), r.Metadata.RequestID)
	assert.Equal(t, int32(2), r.Metadata.RequestStreamID)
}

func TestBatchWriterAppendsInOrder(t *testing.T) {
	w := newStreamWriter(newKeyGenerator(1), sourceRecord(), nil)
	b := w.NewBatch()
	b.AddFollowUpCommand(99, model.JobCancel, &model.JobRecord{})
	b.AddFollowUpEvent(5, model.WorkflowInstanceActivityTerminated, &model.WorkflowInstanceRecord{})
	b.AddFollowUpEvent(1, model.WorkflowInstanceCanceled, &model.WorkflowInstanceRecord{})

	require.Len(t, w.records, 3)
	assert.Equal(t, model.JobCancel, w.records[0].Intent)
	assert.Equal(t, model.WorkflowInstanceActivityTerminated, w.records[1].Intent)
	assert.Equal(t, model.WorkflowInstanceCanceled, w.records[2].Intent)
}
